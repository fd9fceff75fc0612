package contract

// State derives the contract's classification purely from which slots
// hold a signature that verifies against that slot's pubkey over Cxid.
// States are never stored; they are recomputed on demand from Sigs.
func (c *Contract) State() State {
	cxid := c.Cxid()

	p1Valid := c.Sigs[SlotP1] != nil && verifySlot(c.P1Pubkey[:], cxid[:], c.Sigs[SlotP1])
	p2Valid := c.Sigs[SlotP2] != nil && verifySlot(c.P2Pubkey[:], cxid[:], c.Sigs[SlotP2])
	arbValid := c.Sigs[SlotArbiter] != nil && verifySlot(c.ArbiterPubkey[:], cxid[:], c.Sigs[SlotArbiter])

	playerSigs := 0
	if p1Valid {
		playerSigs++
	}
	if p2Valid {
		playerSigs++
	}

	if arbValid {
		if playerSigs < 2 {
			return StateInvalid
		}
		return StateCertified
	}

	switch {
	case playerSigs == 2:
		return StateAccepted
	case p1Valid:
		return StateP1Signed
	case p2Valid:
		return StateP2Signed
	default:
		return StateUnsigned
	}
}
