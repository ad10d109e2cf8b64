package table

import errorsmod "cosmossdk.io/errors"

// fundedSeats returns the occupied seats holding chips, ascending.
func (t *Table) fundedSeats() []int {
	out := make([]int, 0, t.cfg.MaxSeats)
	for i, s := range t.seats {
		if s == nil || s.Chips == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// nextFundedSeat returns the next funded seat clockwise from from.
func (t *Table) nextFundedSeat(from int) int {
	n := t.cfg.MaxSeats
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if t.seats[i] != nil && t.seats[i].Chips > 0 {
			return i
		}
	}
	return from
}

func (t *Table) seatOf(agentID string) int {
	for i, s := range t.seats {
		if s != nil && s.AgentID == agentID {
			return i
		}
	}
	return -1
}

// blindSeats picks the small and big blind for the coming hand. Heads-up
// the button posts the small blind.
func (t *Table) blindSeats() (sbSeat, bbSeat int) {
	active := t.fundedSeats()
	if len(active) < 2 {
		return -1, -1
	}
	if len(active) == 2 {
		sbSeat = t.button
		bbSeat = t.nextFundedSeat(sbSeat)
		return sbSeat, bbSeat
	}
	sbSeat = t.nextFundedSeat(t.button)
	bbSeat = t.nextFundedSeat(sbSeat)
	return sbSeat, bbSeat
}

// postBlind commits a blind, going all-in when the stack is short.
func (t *Table) postBlind(h *Hand, seat int, amount int64) error {
	s := t.seats[seat]
	if s == nil || !h.InHand[seat] {
		return errorsmod.Wrapf(ErrIllegalAction, "blind seat %d not in hand", seat)
	}
	if s.Chips == 0 {
		return errorsmod.Wrapf(ErrIllegalAction, "blind seat %d has no chips", seat)
	}
	put := amount
	if put > s.Chips {
		put = s.Chips
	}
	s.Chips -= put
	h.StreetCommit[seat] += put
	h.TotalCommit[seat] += put
	if s.Chips == 0 {
		h.AllIn[seat] = true
	}
	return nil
}

// dealHoleCards deals two cards to every seat in the hand, one at a time,
// starting left of the button (the small blind seat).
func (t *Table) dealHoleCards(h *Hand) {
	n := t.cfg.MaxSeats
	order := make([]int, 0, n)
	cur := h.SmallBlindSeat
	for {
		if h.InHand[cur] {
			order = append(order, cur)
		}
		cur = (cur + 1) % n
		if cur == h.SmallBlindSeat {
			break
		}
	}
	for c := 0; c < 2; c++ {
		for _, seat := range order {
			if h.DeckCursor >= len(h.Deck) {
				return
			}
			t.seats[seat].Hole[c] = h.Deck[h.DeckCursor]
			h.DeckCursor++
		}
	}
	for _, seat := range order {
		t.seats[seat].HasHole = true
	}
}

func needsToAct(h *Hand, seat int) bool {
	if !h.InHand[seat] || h.Folded[seat] || h.AllIn[seat] {
		return false
	}
	return h.LastIntervalActed[seat] != int(h.IntervalID) || h.StreetCommit[seat] != h.BetTo
}

func (t *Table) nextActiveToAct(h *Hand, fromSeat int) int {
	n := t.cfg.MaxSeats
	for step := 1; step <= n; step++ {
		i := (fromSeat + step) % n
		if needsToAct(h, i) {
			return i
		}
	}
	return -1
}

func toCall(h *Hand, seat int) int64 {
	if h.BetTo <= h.StreetCommit[seat] {
		return 0
	}
	return h.BetTo - h.StreetCommit[seat]
}

func countNotFolded(h *Hand) int {
	n := 0
	for i := range h.InHand {
		if h.InHand[i] && !h.Folded[i] {
			n++
		}
	}
	return n
}

func countInHand(h *Hand) int {
	n := 0
	for i := range h.InHand {
		if h.InHand[i] {
			n++
		}
	}
	return n
}

// countWithChips counts contenders who can still bet.
func (t *Table) countWithChips(h *Hand) int {
	n := 0
	for i := range h.InHand {
		if !h.InHand[i] || h.Folded[i] {
			continue
		}
		if s := t.seats[i]; s != nil && s.Chips > 0 {
			n++
		}
	}
	return n
}

// applyBetTo moves a seat's street commitment up to the raise-to target.
// It owns the full raise legality: minimum sizes, the all-in exception,
// and the interval bookkeeping that decides who gets to act again.
func (t *Table) applyBetTo(h *Hand, seat int, desiredCommit int64) error {
	s := t.seats[seat]
	currentCommit := h.StreetCommit[seat]
	if desiredCommit <= currentCommit {
		return errorsmod.Wrap(ErrIllegalAction, "raise target must exceed current street commitment")
	}
	maxCommit, err := addInt64Checked(currentCommit, s.Chips, "commit")
	if err != nil {
		return err
	}
	if desiredCommit > maxCommit {
		return errorsmod.Wrap(ErrIllegalAction, "raise target exceeds available chips")
	}
	currentBetTo := h.BetTo
	if desiredCommit <= currentBetTo {
		return errorsmod.Wrap(ErrIllegalAction, "raise target must exceed the current bet")
	}
	if h.LastIntervalActed[seat] == int(h.IntervalID) {
		return errorsmod.Wrap(ErrIllegalAction, "raise not allowed: already acted since the last full raise")
	}

	isAllIn := desiredCommit == maxCommit
	raiseSize := desiredCommit - currentBetTo
	minBet := t.cfg.BigBlind

	if currentBetTo == 0 {
		// Opening bet for the street. Any open starts a fresh interval,
		// even a short all-in.
		if desiredCommit < minBet && !isAllIn {
			return errorsmod.Wrap(ErrIllegalAction, "bet below big blind; only allowed all-in")
		}
		h.IntervalID++
		h.LastIntervalActed[seat] = int(h.IntervalID)
		if desiredCommit >= minBet {
			h.MinRaiseSize = desiredCommit
		} else {
			h.MinRaiseSize = minBet
		}
		h.BetTo = desiredCommit
	} else {
		if raiseSize < h.MinRaiseSize {
			if !isAllIn {
				return errorsmod.Wrap(ErrIllegalAction, "raise below minimum; only allowed all-in")
			}
			// Short all-in: BetTo moves but the interval does not, so
			// players who already matched get no fresh action.
			h.LastIntervalActed[seat] = int(h.IntervalID)
			h.BetTo = desiredCommit
		} else {
			h.IntervalID++
			h.MinRaiseSize = raiseSize
			h.BetTo = desiredCommit
			h.LastIntervalActed[seat] = int(h.IntervalID)
		}
	}

	delta := desiredCommit - currentCommit
	s.Chips -= delta
	h.StreetCommit[seat] += delta
	h.TotalCommit[seat] += delta
	if s.Chips == 0 {
		h.AllIn[seat] = true
	}
	return nil
}

func (t *Table) applyCall(h *Hand, seat int) error {
	s := t.seats[seat]
	need := toCall(h, seat)
	if need == 0 {
		return errorsmod.Wrap(ErrIllegalAction, "call is not legal when facing no bet")
	}
	pay := need
	if pay > s.Chips {
		pay = s.Chips
	}
	s.Chips -= pay
	h.StreetCommit[seat] += pay
	h.TotalCommit[seat] += pay
	if s.Chips == 0 {
		h.AllIn[seat] = true
	}
	h.LastIntervalActed[seat] = int(h.IntervalID)
	return nil
}

func applyCheck(h *Hand, seat int) error {
	if toCall(h, seat) != 0 {
		return errorsmod.Wrap(ErrIllegalAction, "check is not legal facing a bet")
	}
	h.LastIntervalActed[seat] = int(h.IntervalID)
	return nil
}

func applyFold(h *Hand, seat int) {
	h.Folded[seat] = true
	h.LastIntervalActed[seat] = int(h.IntervalID)
}

// streetComplete reports whether every live seat has matched BetTo and
// acted in the current interval.
func streetComplete(h *Hand) bool {
	interval := int(h.IntervalID)
	for i := range h.InHand {
		if !h.InHand[i] || h.Folded[i] || h.AllIn[i] {
			continue
		}
		if h.StreetCommit[i] != h.BetTo {
			return false
		}
		if h.LastIntervalActed[i] != interval {
			return false
		}
	}
	return true
}

func maxStreetCommit(h *Hand) int64 {
	var m int64
	for _, v := range h.StreetCommit {
		if v > m {
			m = v
		}
	}
	return m
}

func secondMaxStreetCommit(h *Hand, max int64) int64 {
	var s int64
	for _, v := range h.StreetCommit {
		if v == max {
			continue
		}
		if v > s {
			s = v
		}
	}
	return s
}

// returnUncalledExcess hands back the part of the street's largest
// commitment that nobody matched. Run at every street seal and before any
// settlement.
func (t *Table) returnUncalledExcess(h *Hand) {
	max := maxStreetCommit(h)
	if max == 0 {
		return
	}
	second := secondMaxStreetCommit(h, max)
	if second == max {
		return
	}
	maxSeat := -1
	for i, v := range h.StreetCommit {
		if v != max {
			continue
		}
		if maxSeat != -1 {
			return
		}
		maxSeat = i
	}
	if maxSeat == -1 || t.seats[maxSeat] == nil {
		return
	}
	excess := max - second
	t.seats[maxSeat].Chips += excess
	h.StreetCommit[maxSeat] -= excess
	h.TotalCommit[maxSeat] -= excess
	if t.seats[maxSeat].Chips > 0 {
		h.AllIn[maxSeat] = false
	}
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildPots slices total contributions into ascending tiers. Each tier's
// pot is the tier size times everyone still carrying that much, and only
// unfolded seats are eligible; adjacent tiers with the same eligibility
// merge into one pot.
func buildPots(totalCommit []int64, eligible []bool) ([]Pot, error) {
	type rem struct {
		seat     int
		amount   int64
		eligible bool
	}
	remaining := make([]rem, 0, len(totalCommit))
	for i, amt := range totalCommit {
		if amt == 0 {
			continue
		}
		remaining = append(remaining, rem{seat: i, amount: amt, eligible: eligible[i]})
	}

	tiers := []Pot{}
	for len(remaining) > 0 {
		min := remaining[0].amount
		for _, r := range remaining[1:] {
			if r.amount < min {
				min = r.amount
			}
		}
		amount, err := mulInt64Checked(min, int64(len(remaining)), "pot")
		if err != nil {
			return nil, err
		}
		seats := make([]int, 0, len(remaining))
		for _, r := range remaining {
			if r.eligible {
				seats = append(seats, r.seat)
			}
		}
		tiers = append(tiers, Pot{Amount: amount, Eligible: seats})

		next := remaining[:0]
		for _, r := range remaining {
			r.amount -= min
			if r.amount > 0 {
				next = append(next, r)
			}
		}
		remaining = next
	}

	merged := []Pot{}
	for _, p := range tiers {
		if len(merged) > 0 && sameSeats(merged[len(merged)-1].Eligible, p.Eligible) {
			merged[len(merged)-1].Amount += p.Amount
			continue
		}
		merged = append(merged, Pot{Amount: p.Amount, Eligible: append([]int(nil), p.Eligible...)})
	}
	return merged, nil
}
