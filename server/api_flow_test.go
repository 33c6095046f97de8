package server

import (
	"fmt"
	"net/http"
	"testing"
)

// Exercises the whole surface the way a client session would: an admin
// publishes a track, a listener signs up, builds a playlist, plays and
// likes the track, then unwinds the like.
func TestListenerSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	// Admin publishes a four-minute track.
	rec, resp := env.do(t, http.MethodPost, "/api/tracks", env.adminToken, map[string]interface{}{
		"title":     "Midnight City",
		"artist":    "M83",
		"duration":  "4:00",
		"published": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create track: status = %d, body %s", rec.Code, rec.Body.String())
	}
	track := dataMap(t, resp)["track"].(map[string]interface{})
	trackID := int64(track["id"].(float64))
	if track["durationInSeconds"] != float64(240) {
		t.Fatalf("durationInSeconds = %v, want 240", track["durationInSeconds"])
	}

	// A new listener registers and gets a session token back.
	rec, resp = env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "Fresh Ears", Email: "fresh@example.com", Password: "listen123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d", rec.Code)
	}
	token := dataMap(t, resp)["token"].(string)

	// They create a playlist and add the track; the aggregate follows.
	rec, resp = env.do(t, http.MethodPost, "/api/playlists", token, map[string]interface{}{
		"name": "Late Night",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create playlist: status = %d", rec.Code)
	}
	playlist := dataMap(t, resp)["playlist"].(map[string]interface{})
	playlistID := int64(playlist["id"].(float64))
	if playlist["totalDuration"] != "0m" {
		t.Fatalf("new playlist totalDuration = %v, want 0m", playlist["totalDuration"])
	}

	rec, resp = env.do(t, http.MethodPost,
		playlistPath(playlistID, fmt.Sprintf("/tracks/%d", trackID)), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("add track: status = %d", rec.Code)
	}
	playlist = dataMap(t, resp)["playlist"].(map[string]interface{})
	if playlist["totalDuration"] != "4m" {
		t.Fatalf("totalDuration = %v, want 4m", playlist["totalDuration"])
	}

	// One play, one like.
	rec, _ = env.do(t, http.MethodPost, trackPath(trackID, "/play"), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("play: status = %d", rec.Code)
	}
	rec, resp = env.do(t, http.MethodPost, trackPath(trackID, "/like"), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like: status = %d", rec.Code)
	}
	data := dataMap(t, resp)
	if data["liked"] != true || data["likes"] != float64(1) {
		t.Fatalf("like toggle = %v, want liked=true likes=1", data)
	}

	// The liked track shows up in their like list.
	rec, resp = env.do(t, http.MethodGet, "/api/users/me/likes", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("likes: status = %d", rec.Code)
	}
	ids := dataMap(t, resp)["trackIds"].([]interface{})
	if len(ids) != 1 || int64(ids[0].(float64)) != trackID {
		t.Fatalf("trackIds = %v, want [%d]", ids, trackID)
	}

	// Toggling again unwinds it completely.
	rec, resp = env.do(t, http.MethodPost, trackPath(trackID, "/like"), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlike: status = %d", rec.Code)
	}
	data = dataMap(t, resp)
	if data["liked"] != false || data["likes"] != float64(0) {
		t.Fatalf("unlike toggle = %v, want liked=false likes=0", data)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/users/me/likes", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("likes: status = %d", rec.Code)
	}
	if ids := dataMap(t, resp)["trackIds"].([]interface{}); len(ids) != 0 {
		t.Fatalf("trackIds = %v, want empty after unlike", ids)
	}

	// Track counters reflect the session.
	rec, resp = env.do(t, http.MethodGet, trackPath(trackID, ""), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get track: status = %d", rec.Code)
	}
	final := dataMap(t, resp)["track"].(map[string]interface{})
	if final["plays"] != float64(1) {
		t.Errorf("plays = %v, want 1", final["plays"])
	}
	if final["likes"] != float64(0) {
		t.Errorf("likes = %v, want 0", final["likes"])
	}
}
