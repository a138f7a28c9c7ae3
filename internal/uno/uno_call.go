package uno

// SayUno records that player i has declared "UNO!". A declaration survives the
// player's own next play and is cleared by anyone else's play or by any draw.
func (h *Hand) SayUno(i int) error {
	if h.HasEnded() {
		return ErrHandEnded
	}
	if err := h.checkPlayer(i); err != nil {
		return err
	}
	h.declared[i] = true
	return nil
}

// CheckUnoFailure reports whether accusing accused of failing to say "UNO!"
// would succeed right now. It never changes the hand.
func (h *Hand) CheckUnoFailure(accuser, accused int) (bool, error) {
	if h.HasEnded() {
		return false, ErrHandEnded
	}
	if err := h.checkPlayer(accuser); err != nil {
		return false, err
	}
	if err := h.checkPlayer(accused); err != nil {
		return false, err
	}
	return h.unoWindow == accused && len(h.hands[accused]) == 1 && !h.declared[accused], nil
}

// CatchUnoFailure accuses a player of not saying "UNO!". It succeeds only while
// the accused holds a single undeclared card and nobody has played or drawn since
// the play that left them with it. On success the accused draws four cards and the
// window closes. The accuser's identity does not matter beyond being a valid seat.
func (h *Hand) CatchUnoFailure(accuser, accused int) (bool, error) {
	ok, err := h.CheckUnoFailure(accuser, accused)
	if err != nil || !ok {
		return false, err
	}
	h.drawInto(accused, 4)
	h.unoWindow = noPlayer
	return true, nil
}

// Declared reports whether player i currently has a standing UNO declaration.
func (h *Hand) Declared(i int) bool {
	if i < 0 || i >= len(h.declared) {
		return false
	}
	return h.declared[i]
}
