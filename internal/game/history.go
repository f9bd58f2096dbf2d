package game

import "time"

// maxHistory bounds the action log; it is a diagnostic trail, not
// authoritative state.
const maxHistory = 50

// HistoryEntry records one action for the room's audit trail.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Amount    int       `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func (g *Game) addHistory(action, actor string, amount int) {
	g.History = append(g.History, HistoryEntry{
		Action:    action,
		Actor:     actor,
		Amount:    amount,
		Timestamp: g.clock.Now(),
	})
	if len(g.History) > maxHistory {
		g.History = g.History[len(g.History)-maxHistory:]
	}
}
