package table

import (
	"time"

	"github.com/RobotsMakeThings/clawcasino/internal/cards"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
)

// View is the wire shape of a table. Hole cards appear only in views
// built for the seat that holds them; everything else is public.
type View struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Currency string     `json:"currency"`
	Blinds   string     `json:"blinds"`
	MinBuyIn string     `json:"min_buy_in"`
	MaxBuyIn string     `json:"max_buy_in"`
	MaxSeats int        `json:"max_seats"`
	Button   int        `json:"button"`
	Halted   bool       `json:"halted,omitempty"`
	Seats    []SeatView `json:"seats"`
	Hand     *HandView  `json:"hand,omitempty"`
}

type SeatView struct {
	Seat       int      `json:"seat"`
	Agent      string   `json:"agent"`
	Name       string   `json:"name,omitempty"`
	Chips      string   `json:"chips"`
	Status     string   `json:"status"`
	LastAction string   `json:"last_action,omitempty"`
	StreetBet  string   `json:"street_bet,omitempty"`
	TotalBet   string   `json:"total_bet,omitempty"`
	HoleCount  int      `json:"hole_count,omitempty"`
	Hole       []string `json:"hole,omitempty"`
}

type HandView struct {
	No             uint64     `json:"no"`
	Street         Street     `json:"street"`
	Board          []string   `json:"board"`
	Pot            string     `json:"pot"`
	BetTo          string     `json:"bet_to"`
	MinRaiseTo     string     `json:"min_raise_to"`
	ActionOn       int        `json:"action_on"`
	ActionAgent    string     `json:"action_agent,omitempty"`
	ToCall         string     `json:"to_call,omitempty"`
	LegalActions   []string   `json:"legal_actions,omitempty"`
	ActionDeadline *time.Time `json:"action_deadline,omitempty"`
	SeedHash       string     `json:"seed_hash"`
	Button         int        `json:"button"`
	SmallBlindSeat int        `json:"small_blind_seat"`
	BigBlindSeat   int        `json:"big_blind_seat"`
}

// view builds the table state as seen by forAgent. The empty agent id
// yields the public view. Called under mu.
func (t *Table) view(forAgent string) View {
	v := View{
		ID:       t.cfg.ID,
		Name:     t.cfg.Name,
		Currency: t.cfg.Currency,
		Blinds:   t.lvl,
		MinBuyIn: fmtCents(t.cfg.MinBuyIn),
		MaxBuyIn: fmtCents(t.cfg.MaxBuyIn),
		MaxSeats: t.cfg.MaxSeats,
		Button:   t.button,
		Halted:   t.halted,
		Seats:    make([]SeatView, 0, len(t.seats)),
	}
	h := t.hand
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		sv := SeatView{
			Seat:       i,
			Agent:      s.AgentID,
			Name:       s.DisplayName,
			Chips:      fmtCents(s.Chips),
			Status:     t.seatStatus(i),
			LastAction: s.LastAction,
		}
		if h != nil && h.InHand[i] {
			sv.StreetBet = fmtCents(h.StreetCommit[i])
			sv.TotalBet = fmtCents(h.TotalCommit[i])
			if s.HasHole {
				sv.HoleCount = 2
				if forAgent != "" && s.AgentID == forAgent {
					sv.Hole = []string{s.Hole[0].String(), s.Hole[1].String()}
				}
			}
		}
		v.Seats = append(v.Seats, sv)
	}
	if h != nil {
		hv := &HandView{
			No:             h.No,
			Street:         h.Street,
			Board:          cards.Strings(h.Board),
			Pot:            fmtCents(potTotal(h)),
			BetTo:          fmtCents(h.BetTo),
			MinRaiseTo:     fmtCents(h.BetTo + h.MinRaiseSize),
			ActionOn:       h.ActionOn,
			SeedHash:       h.SeedHash,
			Button:         h.Button,
			SmallBlindSeat: h.SmallBlindSeat,
			BigBlindSeat:   h.BigBlindSeat,
		}
		if h.ActionOn >= 0 && t.seats[h.ActionOn] != nil {
			hv.ActionAgent = t.seats[h.ActionOn].AgentID
			hv.ToCall = fmtCents(toCall(h, h.ActionOn))
			hv.LegalActions = t.legalActions(h, h.ActionOn)
			if !h.ActionDeadline.IsZero() {
				dl := h.ActionDeadline
				hv.ActionDeadline = &dl
			}
		}
		v.Hand = hv
	}
	return v
}

func (t *Table) seatStatus(seat int) string {
	h := t.hand
	if h == nil || !h.InHand[seat] {
		return "sitting-out"
	}
	if h.Folded[seat] {
		return "folded"
	}
	if h.AllIn[seat] {
		return "all-in"
	}
	return "active"
}

// legalActions lists what the acting seat may do right now, mirroring
// the checks applyAction enforces.
func (t *Table) legalActions(h *Hand, seat int) []string {
	s := t.seats[seat]
	if s == nil {
		return nil
	}
	actions := []string{ActionFold}
	need := toCall(h, seat)
	if need == 0 {
		actions = append(actions, ActionCheck)
	} else if s.Chips > 0 {
		actions = append(actions, ActionCall)
	}
	raiseOpen := h.LastIntervalActed[seat] != int(h.IntervalID)
	desired := h.StreetCommit[seat] + s.Chips
	if raiseOpen && desired > h.BetTo {
		if h.BetTo == 0 {
			actions = append(actions, ActionBet)
		} else {
			actions = append(actions, ActionRaise)
		}
	}
	if s.Chips > 0 && (desired <= h.BetTo || raiseOpen) {
		actions = append(actions, ActionAllIn)
	}
	return actions
}

// Event payloads. Every table event carries enough to render the change
// without a follow-up query; the bigger ones embed the public view.

type SeatEvent struct {
	Seat   int    `json:"seat"`
	Agent  string `json:"agent"`
	Change string `json:"change"`
	Table  View   `json:"table"`
}

type HandStartedEvent struct {
	HandNo         uint64 `json:"hand_no"`
	Button         int    `json:"button"`
	SmallBlindSeat int    `json:"small_blind_seat"`
	BigBlindSeat   int    `json:"big_blind_seat"`
	SeedHash       string `json:"seed_hash"`
	Table          View   `json:"table"`
}

// HoleCardsEvent goes to the seat owner's agent topic only.
type HoleCardsEvent struct {
	TableID string    `json:"table_id"`
	HandNo  uint64    `json:"hand_no"`
	Seat    int       `json:"seat"`
	Cards   [2]string `json:"cards"`
}

// ActionEvent reports one applied action. Amount is the seat's street
// commitment after the action.
type ActionEvent struct {
	Seat   int    `json:"seat"`
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Amount string `json:"amount,omitempty"`
	Auto   bool   `json:"auto,omitempty"`
	Table  View   `json:"table"`
}

type StreetEvent struct {
	Street Street   `json:"street"`
	Cards  []string `json:"cards"`
	Pot    string   `json:"pot"`
	Table  View     `json:"table"`
}

// PotEvent marks a street sealing with the pot locked in.
type PotEvent struct {
	Street Street `json:"street"`
	Pot    string `json:"pot"`
}

type DeadlineEvent struct {
	Seat          int       `json:"seat"`
	Agent         string    `json:"agent"`
	Deadline      time.Time `json:"deadline"`
	RemainingSecs int       `json:"remaining_secs"`
}

// PotResult is one pot tier's outcome.
type PotResult struct {
	Amount   string `json:"amount"`
	Fee      string `json:"fee"`
	Eligible []int  `json:"eligible"`
	Winners  []int  `json:"winners"`
	Rank     string `json:"rank,omitempty"`
}

type ShowdownSeat struct {
	Seat  int       `json:"seat"`
	Agent string    `json:"agent"`
	Cards [2]string `json:"cards"`
	Rank  string    `json:"rank"`
}

type ShowdownEvent struct {
	HandNo  uint64         `json:"hand_no"`
	Board   []string       `json:"board"`
	Pots    []PotResult    `json:"pots"`
	Reveals []ShowdownSeat `json:"reveals"`
}

// HandCompleteEvent closes a hand and discloses the shuffle seed so the
// deck can be verified against the pre-hand commitment.
type HandCompleteEvent struct {
	HandNo   uint64 `json:"hand_no"`
	Reason   string `json:"reason"`
	Seed     string `json:"seed"`
	SeedHash string `json:"seed_hash"`
	Rake     string `json:"rake"`
	Table    View   `json:"table"`
}

type HaltEvent struct {
	Cause string `json:"cause"`
}

type handSummary struct {
	Reason string      `json:"reason"`
	Pots   []PotResult `json:"pots"`
}

func fmtCents(c int64) string { return money.Format(money.FromCents(c)) }
