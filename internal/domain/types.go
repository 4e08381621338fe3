package domain

type AccountID string

func (aid AccountID) String() string {
	return string(aid)
}

type BotID string

func (bid BotID) String() string {
	return string(bid)
}

type ContactID string

func (cid ContactID) String() string {
	return string(cid)
}

type EventID string

func (eid EventID) String() string {
	return string(eid)
}

// SendID is the client-generated identifier attached to an outbound message so
// the platform can deduplicate resent requests.
type SendID string

type BotInfo struct {
	BotID         BotID
	Name          string
	BasicSearchID string
}

type Account struct {
	AccountID AccountID
	Name      string
}
