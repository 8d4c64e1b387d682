package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Packet assembly.
 *
 * Description:	Normal protocols wrap the payload as
 *
 *			START  payload...  checksum  STOP
 *
 *		where the checksum is computed over the payload as sent,
 *		after any transform.  Protocols with custom framing
 *		produce the whole sequence themselves.
 *
 *---------------------------------------------------------------*/

// Payload is the filtered message after the protocol transform.
func (p *Protocol) Payload(message string) string {
	var filtered = p.Alphabet.Filter(message)

	if p.Transform != nil {
		return p.Transform(filtered)
	}

	return filtered
}

// Packet is the full token sequence placed on the wire for a message.
// Nil if nothing in the message can be sent.
func (p *Protocol) Packet(message string) []rune {
	if p.Alphabet.Filter(message) == "" {
		return nil
	}

	var payload = p.Payload(message)

	if p.CustomFraming {
		return []rune(payload)
	}

	var tokens = make([]rune, 0, len(payload)+3)
	tokens = append(tokens, StartToken)
	tokens = append(tokens, []rune(payload)...)
	tokens = append(tokens, Checksum(payload), StopToken)

	return tokens
}
