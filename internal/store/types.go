package store

// Chat is an archived chat.
type Chat struct {
	JID           string
	Name          string
	IsGroup       bool
	LastMessageAt int64
	MessageCount  int64
	Participants  []string
}

// Contact is an archived contact.
type Contact struct {
	JID   string
	Name  string
	Phone string
}

// Message is an archived message. MsgID is the id inside the source
// database, unique per chat.
type Message struct {
	ID           int64
	ChatJID      string
	MsgID        int64
	SenderJID    string
	Body         string
	MediaType    int64
	MediaPath    string
	MediaCaption string
	QuotedMsgID  *int64
	FromMe       bool
	Status       int64
	Timestamp    int64
}

// CallLog is an archived call.
type CallLog struct {
	CallID     int64
	JID        string
	Timestamp  int64
	FromMe     bool
	Duration   int64
	VideoCall  bool
	CallResult *int64
}

// Run is one pipeline execution against the case.
type Run struct {
	ID         string
	Source     string
	StartedAt  int64
	FinishedAt int64
	Outcome    string
}

// Evidence kinds.
const (
	KindAcquired  = "acquired"
	KindKey       = "key"
	KindDecrypted = "decrypted"
	KindReport    = "report"
)

// Evidence is a hashed artifact tracked by the case.
type Evidence struct {
	ID         string
	RunID      string
	Kind       string
	Path       string
	Size       int64
	MD5        string
	SHA256     string
	SHA512     string
	RecordedAt int64
}

// Custody actions.
const (
	ActionRecorded = "recorded"
	ActionVerified = "verified"
	ActionMismatch = "mismatch"
	ActionMissing  = "missing"
)

// CustodyEvent is one entry of an evidence item's chain of custody.
type CustodyEvent struct {
	ID         int64
	EvidenceID string
	Action     string
	Actor      string
	Detail     string
	At         int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
