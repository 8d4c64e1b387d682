package main

import (
	"testing"

	modem "github.com/doismellburning/tonemodem/src"
)

func Test_Codes2Text(t *testing.T) {
	modem.AssertOutputContains(t, func() { modem.Codes2Text("*19041819#") }, "тест")
	modem.AssertOutputContains(t, func() { modem.Codes2Text("5152") }, "st")
}
