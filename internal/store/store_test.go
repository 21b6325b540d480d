package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (archive + evidence)", result.Version)
	}
	if result.Previous != 2 {
		t.Errorf("previous = %d, want 2", result.Previous)
	}
}

func TestMigrateFreshReportsPrevious(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.Previous != 0 || result.Version != SchemaVersion {
		t.Errorf("result = %+v, want 0 -> %d changed", *result, SchemaVersion)
	}
}

func TestMigrateRejectsUnusableArchive(t *testing.T) {
	tests := []struct {
		name   string
		update string
		want   error
	}{
		{"dirty", `UPDATE archive_migrations SET dirty = 1`, ErrArchiveDirty},
		{"too new", `UPDATE archive_migrations SET version = 9`, ErrArchiveTooNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			if _, err := db.Exec(tt.update); err != nil {
				t.Fatal(err)
			}
			if _, err := db.Migrate(); !errors.Is(err, tt.want) {
				t.Errorf("Migrate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMigrateSchemaHasRequiredColumns(t *testing.T) {
	db := testDB(t)

	requiredOps := []struct {
		desc  string
		query string
		args  []any
	}{
		{"insert chat", "INSERT INTO chats (jid, name, is_group, last_message_at, message_count) VALUES (?, ?, ?, ?, ?)", []any{"c@s", "Test", false, 1000, 1}},
		{"insert participant", "INSERT INTO chat_participants (chat_jid, member_jid, position) VALUES (?, ?, ?)", []any{"g@g.us", "m@s", 0}},
		{"insert message", "INSERT INTO messages (chat_jid, msg_id, sender_jid, body, media_type, from_me, status, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", []any{"c@s", 1, "s@s", "hello", 0, false, 0, 1000}},
		{"insert contact", "INSERT INTO contacts (jid, name, phone) VALUES (?, ?, ?)", []any{"j@s", "Name", "1"}},
		{"insert call", "INSERT INTO call_logs (call_id, jid, timestamp, duration, video_call) VALUES (?, ?, ?, ?, ?)", []any{1, "j@s", 1000, 10, true}},
		{"set checkpoint", "INSERT INTO checkpoints (key, value) VALUES (?, ?)", []any{"k", "v"}},
		{"insert run", "INSERT INTO runs (id, source, started_at) VALUES (?, ?, ?)", []any{"r", "file", 1}},
	}

	for _, op := range requiredOps {
		t.Run(op.desc, func(t *testing.T) {
			if _, err := db.Exec(op.query, op.args...); err != nil {
				t.Fatalf("%s failed: %v", op.desc, err)
			}
		})
	}
}

func TestChatUpsertAndList(t *testing.T) {
	db := testDB(t)

	chat := &Chat{JID: "123@s.whatsapp.net", Name: "Alice", LastMessageAt: 1000, MessageCount: 2}
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}

	// Empty name and older activity must not clobber known values.
	if err := db.UpsertChat(&Chat{JID: "123@s.whatsapp.net", LastMessageAt: 500}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertChat(&Chat{JID: "999@g.us", IsGroup: true, LastMessageAt: 2000}); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[0].JID != "999@g.us" {
		t.Errorf("first chat = %q, want newest 999@g.us", chats[0].JID)
	}
	if chats[0].Name != "999@g.us" {
		t.Errorf("unnamed chat name = %q, want jid fallback", chats[0].Name)
	}
	if chats[1].Name != "Alice" || chats[1].LastMessageAt != 1000 || chats[1].MessageCount != 2 {
		t.Errorf("merged chat = %+v", chats[1])
	}
}

func TestGetChatWithParticipants(t *testing.T) {
	db := testDB(t)

	group := &Chat{JID: "g@g.us", Name: "G", IsGroup: true, Participants: []string{"b@s", "a@s"}}
	if err := db.UpsertChat(group); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetChat("g@g.us")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Name != "G" {
		t.Fatalf("got %v, want G", c)
	}
	if strings.Join(c.Participants, ",") != "b@s,a@s" {
		t.Errorf("participants = %v, want source order", c.Participants)
	}

	c, err = db.GetChat("missing@s")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("expected nil for missing chat")
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{ChatJID: "chat@s", MsgID: 1, Body: "hello", Timestamp: 1000}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Body = "hello updated"
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	quoted := int64(1)
	if err := db.UpsertMessage(&Message{ChatJID: "chat@s", MsgID: 2, Body: "reply", QuotedMsgID: &quoted, Timestamp: 900}); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("chat@s", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (idempotent upsert failed)", len(msgs))
	}
	if msgs[0].MsgID != 2 || msgs[0].QuotedMsgID == nil || *msgs[0].QuotedMsgID != 1 {
		t.Errorf("first message = %+v, want oldest reply quoting 1", msgs[0])
	}
	if msgs[1].Body != "hello updated" || msgs[1].QuotedMsgID != nil {
		t.Errorf("second message = %+v", msgs[1])
	}

	n, err := db.CountMessages()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := testDB(t)
	errBoom := errors.New("boom")

	err := db.WithTx(func(tx *Tx) error {
		if err := tx.UpsertContact(&Contact{JID: "j@s", Name: "John"}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	contacts, err := db.ListContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 0 {
		t.Errorf("got %d contacts after rollback, want 0", len(contacts))
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)

	msgs := []*Message{
		{ChatJID: "chat@s", MsgID: 1, Body: "Hello world", Timestamp: 1000},
		{ChatJID: "chat@s", MsgID: 2, Body: "goodbye world", Timestamp: 2000},
		{ChatJID: "other@s", MsgID: 1, MediaCaption: "hello from a photo", Timestamp: 3000},
		{ChatJID: "chat@s", MsgID: 3, Body: "100% sure", Timestamp: 4000},
	}
	for _, m := range msgs {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query string
		chat  string
		want  []int64
	}{
		{"hello", "", []int64{1, 1}},
		{"hello", "chat@s", []int64{1}},
		{"world", "", []int64{1, 2}},
		{"0%", "", []int64{3}},
		{"%", "", []int64{3}},
		{"missing", "", nil},
	}
	for _, tt := range tests {
		results, err := db.SearchMessages(tt.query, tt.chat, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != len(tt.want) {
			t.Errorf("search %q in %q: got %d results, want %d", tt.query, tt.chat, len(results), len(tt.want))
			continue
		}
		for i, r := range results {
			if r.Message.MsgID != tt.want[i] {
				t.Errorf("search %q result %d: msg_id = %d, want %d", tt.query, i, r.Message.MsgID, tt.want[i])
			}
		}
	}

	results, err := db.SearchMessages("hello", "other@s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Snippet != "<<hello>> from a photo" {
		t.Errorf("caption snippet = %+v", results)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 50) + "needle" + strings.Repeat("b", 50)
	got := snippet(long, "NEEDLE")
	want := "..." + strings.Repeat("a", 32) + "<<needle>>" + strings.Repeat("b", 32) + "..."
	if got != want {
		t.Errorf("snippet = %q, want %q", got, want)
	}
	if got := snippet("no match", "x"); got != "no match" {
		t.Errorf("snippet without match = %q", got)
	}
}

func TestContactAndCalls(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{JID: "j@s", Name: "John", Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertContact(&Contact{JID: "j@s"}); err != nil {
		t.Fatal(err)
	}
	contacts, err := db.ListContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].Name != "John" || contacts[0].Phone != "1" {
		t.Errorf("contacts = %+v", contacts)
	}

	result := int64(5)
	calls := []*CallLog{
		{CallID: 1, JID: "j@s", Timestamp: 1000, Duration: 30, CallResult: &result},
		{CallID: 2, JID: "j@s", Timestamp: 2000, VideoCall: true},
	}
	for _, c := range calls {
		if err := db.UpsertCallLog(c); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.ListCallLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].CallID != 2 || !got[0].VideoCall || got[0].CallResult != nil {
		t.Fatalf("calls = %+v", got)
	}
	if got[1].CallResult == nil || *got[1].CallResult != 5 {
		t.Errorf("call result = %v, want 5", got[1].CallResult)
	}
}

func TestEvidenceLedger(t *testing.T) {
	db := testDB(t)

	run, err := db.StartRun("file")
	if err != nil {
		t.Fatal(err)
	}
	e := &Evidence{RunID: run.ID, Kind: KindAcquired, Path: "/case/msgstore.db.crypt14", Size: 10, MD5: "m", SHA256: "s", SHA512: "x"}
	if err := db.RecordEvidence(e, "examiner"); err != nil {
		t.Fatal(err)
	}
	firstID := e.ID
	if firstID == "" {
		t.Fatal("evidence id not assigned")
	}

	again := &Evidence{RunID: run.ID, Kind: KindAcquired, Path: e.Path, Size: 11, MD5: "m2", SHA256: "s2", SHA512: "x2"}
	if err := db.RecordEvidence(again, "examiner"); err != nil {
		t.Fatal(err)
	}
	if again.ID != firstID {
		t.Errorf("re-recorded id = %q, want %q", again.ID, firstID)
	}

	items, err := db.ListEvidence()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].SHA256 != "s2" || items[0].Size != 11 {
		t.Errorf("evidence = %+v", items)
	}

	if err := db.AddCustodyEvent(&CustodyEvent{EvidenceID: firstID, Action: ActionVerified, Actor: "examiner"}); err != nil {
		t.Fatal(err)
	}
	events, err := db.CustodyEvents(firstID)
	if err != nil {
		t.Fatal(err)
	}
	wantActions := []string{ActionRecorded, ActionRecorded, ActionVerified}
	if len(events) != len(wantActions) {
		t.Fatalf("got %d custody events, want %d", len(events), len(wantActions))
	}
	for i, a := range wantActions {
		if events[i].Action != a {
			t.Errorf("event %d action = %q, want %q", i, events[i].Action, a)
		}
	}

	if err := db.FinishRun(run.ID, "completed"); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun("nope", "completed"); err == nil {
		t.Error("expected error finishing unknown run")
	}
	runs, err := db.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Outcome != "completed" || runs[0].FinishedAt == 0 {
		t.Errorf("runs = %+v", runs)
	}
}
