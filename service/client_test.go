package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingServer captures the last request per path and serves canned
// responses.
type recordingServer struct {
	*httptest.Server
	bodies    map[string]json.RawMessage
	responses map[string]string
	statuses  map[string]int
}

func newRecordingServer() *recordingServer {
	rs := &recordingServer{
		bodies:    make(map[string]json.RawMessage),
		responses: make(map[string]string),
		statuses:  make(map[string]int),
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		rs.bodies[r.URL.Path] = body
		if code, ok := rs.statuses[r.URL.Path]; ok {
			w.WriteHeader(code)
		}
		if resp, ok := rs.responses[r.URL.Path]; ok {
			w.Write([]byte(resp))
		} else {
			w.Write([]byte(`{}`))
		}
	}))
	return rs
}

func (rs *recordingServer) body(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	raw, ok := rs.bodies[path]
	require.True(t, ok, "no request recorded for %s", path)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestClient_RegisterLooksUpAssignedID(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	rs.responses["/get_user"] = `{"id": 17, "name": "user_0001"}`

	c := NewClient(rs.URL, time.Second)
	id, err := c.Register(context.Background(), &RegisterRequest{Name: "user_0001", Email: "u@x"})
	require.NoError(t, err)

	assert.Equal(t, int64(17), id)
	reg := rs.body(t, "/register")
	assert.Equal(t, "user_0001", reg["name"])
	lookup := rs.body(t, "/get_user")
	assert.Equal(t, "user_0001", lookup["username"])
}

func TestClient_PostRoutesNewsWithArticle(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	c := NewClient(rs.URL, time.Second)

	require.NoError(t, c.Post(context.Background(), &PostRequest{UserID: 1, Text: "plain", Slot: 3}))
	plain := rs.body(t, "/post")
	assert.Equal(t, "plain", plain["tweet"])
	assert.Equal(t, float64(3), plain["tid"])

	require.NoError(t, c.Post(context.Background(), &PostRequest{
		UserID: 2, Text: "breaking", Article: &Article{Title: "T"},
	}))
	news := rs.body(t, "/news")
	assert.Equal(t, "breaking", news["tweet"])
}

func TestClient_FollowSuggestionsParsesStringKeys(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	rs.responses["/follow_suggestions"] = `{"12": 0.8, "99": 0.2}`

	c := NewClient(rs.URL, time.Second)
	scores, err := c.FollowSuggestions(context.Background(), 1, FollowSuggestParams{Mode: "AdamicAdar", NNeighbors: 5})
	require.NoError(t, err)

	assert.Equal(t, map[int64]float64{12: 0.8, 99: 0.2}, scores)
	sent := rs.body(t, "/follow_suggestions")
	assert.Equal(t, "AdamicAdar", sent["mode"])
	assert.Equal(t, float64(1), sent["user_id"])
}

func TestClient_ThreadKeepsMostRecentTail(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	rs.responses["/post_thread"] = `["a", "b", "c", "d"]`

	c := NewClient(rs.URL, time.Second)
	posts, err := c.Thread(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, posts)
}

func TestClient_FollowAndUnfollowPayloads(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	c := NewClient(rs.URL, time.Second)

	require.NoError(t, c.Follow(context.Background(), 3, 9, 41))
	require.NoError(t, c.Unfollow(context.Background(), 3, 9, 42))

	follow := rs.body(t, "/follow")
	assert.Equal(t, float64(3), follow["user_id"])
	assert.Equal(t, float64(9), follow["target"])
	assert.Equal(t, float64(41), follow["tid"])

	unfollow := rs.body(t, "/unfollow")
	assert.Equal(t, float64(3), unfollow["user_id"])
	assert.Equal(t, float64(9), unfollow["target"])
	assert.Equal(t, float64(42), unfollow["tid"])
}

func TestMock_UnfollowDropsEdge(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.Follow(context.Background(), 3, 9, 0))
	require.True(t, m.HasEdge(3, 9))

	require.NoError(t, m.Unfollow(context.Background(), 3, 9, 1))
	assert.False(t, m.HasEdge(3, 9))
	assert.Equal(t, int64(1), m.Calls("Unfollow"))
}

func TestClient_ChurnPayload(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	c := NewClient(rs.URL, time.Second)

	require.NoError(t, c.Churn(context.Background(), []int64{4, 9}, 23))
	sent := rs.body(t, "/churn")
	assert.Equal(t, []interface{}{float64(4), float64(9)}, sent["user_ids"])
	assert.Equal(t, float64(23), sent["left_on"])
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	rs.statuses["/post"] = http.StatusBadRequest

	c := NewClient(rs.URL, time.Second)
	err := c.Post(context.Background(), &PostRequest{UserID: 1, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_UpdateTimeAndReset(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	c := NewClient(rs.URL, time.Second)

	require.NoError(t, c.UpdateTime(context.Background(), 2, 55))
	sent := rs.body(t, "/update_time")
	assert.Equal(t, float64(2), sent["day"])
	assert.Equal(t, float64(55), sent["round"])

	require.NoError(t, c.Reset(context.Background()))
	if _, ok := rs.bodies["/reset"]; !ok {
		t.Errorf("reset endpoint not called")
	}
}

func TestClient_CurrentTime(t *testing.T) {
	rs := newRecordingServer()
	defer rs.Close()
	rs.responses["/current_time"] = `{"id": 1, "day": 3, "round": 77}`

	c := NewClient(rs.URL, time.Second)
	ts, err := c.CurrentTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), ts.Day)
	assert.Equal(t, int64(77), ts.Slot)
}
