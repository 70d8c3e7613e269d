package session

import (
	"testing"

	"github.com/ikigai/ikigai/internal/testutil"
)

func TestInsertAndLoadMessages(t *testing.T) {
	sink, err := Open(t.TempDir())
	testutil.RequireNoError(t, err, "open sink")
	defer sink.Close()

	testutil.RequireNoError(t, sink.InsertMessage("sess-1", "agent-1", KindUser, "hello", ""), "insert user")
	testutil.RequireNoError(t, sink.InsertMessage("sess-1", "agent-1", KindAssistant, "hi there", `{"model":"gemini-2.5-flash"}`), "insert assistant")

	rows, err := sink.LoadMessages("sess-1")
	testutil.RequireNoError(t, err, "load messages")
	testutil.RequireEqual(t, len(rows), 2, "row count")
	testutil.RequireEqual(t, rows[0].Kind, KindUser, "first row kind")
	testutil.RequireEqual(t, rows[1].DataJSON, `{"model":"gemini-2.5-flash"}`, "second row data")
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	sink, err := Open(t.TempDir())
	testutil.RequireNoError(t, err, "open sink")
	defer sink.Close()

	testutil.RequireNoError(t, sink.InsertMessage("sess-a", "agent-1", KindUser, "a", ""), "insert a")
	testutil.RequireNoError(t, sink.InsertMessage("sess-b", "agent-1", KindUser, "b", ""), "insert b")

	ids, err := sink.ListSessions(0)
	testutil.RequireNoError(t, err, "list sessions")
	testutil.RequireEqual(t, ids, []string{"sess-b", "sess-a"}, "session order")
}

func TestLastSessionRoundTrip(t *testing.T) {
	sink, err := Open(t.TempDir())
	testutil.RequireNoError(t, err, "open sink")
	defer sink.Close()

	hash := ProjectHash("/tmp/project")
	testutil.RequireNoError(t, sink.SaveLastSession(hash, "sess-1"), "save last session")

	got, err := sink.LoadLastSession(hash)
	testutil.RequireNoError(t, err, "load last session")
	testutil.RequireEqual(t, got, "sess-1", "last session id")

	testutil.RequireNoError(t, sink.SaveLastSession(hash, "sess-2"), "overwrite last session")
	got, err = sink.LoadLastSession(hash)
	testutil.RequireNoError(t, err, "load last session after overwrite")
	testutil.RequireEqual(t, got, "sess-2", "updated last session id")
}
