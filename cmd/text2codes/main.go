package main

import (
	modem "github.com/doismellburning/tonemodem/src"
)

func main() {
	modem.Text2CodesMain()
}
