package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/lewisian8787/wrestleguess/database"
	"github.com/lewisian8787/wrestleguess/handlers"
	"github.com/lewisian8787/wrestleguess/models"
	"github.com/lewisian8787/wrestleguess/services"
)

type fixture struct {
	store      *database.MemoryStore
	deps       handlers.RouterDeps
	router     http.Handler
	alice      *models.User
	adminToken string
	userToken  string
}

func newFixture() *fixture {
	store := database.NewMemoryStore()

	admin := &models.User{Email: "admin@example.com", DisplayName: "Admin", IsAdmin: true}
	So(admin.HashPassword("adminpass"), ShouldBeNil)
	admin = store.SaveUser(admin)

	alice := &models.User{Email: "alice@example.com", DisplayName: "Alice"}
	So(alice.HashPassword("alicepass"), ShouldBeNil)
	alice = store.SaveUser(alice)

	store.SaveLeague(&models.League{ID: "L1", Name: "Main Event", JoinCode: "main01"})
	store.AddMember("L1", alice.ID, "Alice")

	store.SaveEvent(&models.Event{
		ID:     "wm40",
		Name:   "WrestleMania 40",
		Locked: true,
		Matches: []models.Match{
			{MatchID: "m1", Competitors: []string{"Cody Rhodes", "Roman Reigns"}, Winner: "Cody Rhodes", Multiplier: 1.0},
			{MatchID: "m2", Competitors: []string{"Rhea Ripley", "Becky Lynch"}, Winner: "Rhea Ripley", Multiplier: 1.5},
		},
	})
	store.SaveEvent(&models.Event{
		ID:   "sd",
		Name: "SmackDown",
		Matches: []models.Match{
			{MatchID: "m1", Competitors: []string{"LA Knight", "AJ Styles"}, Multiplier: 1.0},
			{MatchID: "m2", Competitors: []string{"Bayley", "Iyo Sky"}, Multiplier: 1.0},
		},
	})

	auth := services.NewAuthService(store, "handler-test-secret")
	adminToken, err := auth.GenerateToken(admin)
	So(err, ShouldBeNil)
	userToken, err := auth.GenerateToken(alice)
	So(err, ShouldBeNil)

	deps := handlers.RouterDeps{
		Auth:         auth,
		Scoring:      services.NewScoringService(store, store, store, services.NewStandingsUpdater(store, 450), nil, nil),
		Picks:        services.NewPickService(store, store, nil),
		Leaderboards: services.NewLeaderboardService(store, 100, 500),
		DB:           store,
		CORSOrigins:  []string{"*"},
	}

	return &fixture{
		store:      store,
		deps:       deps,
		router:     handlers.NewRouter(deps),
		alice:      alice,
		adminToken: adminToken,
		userToken:  userToken,
	}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestScoringRoutes(t *testing.T) {
	Convey("Given a locked event with results and one pick", t, func() {
		f := newFixture()
		So(f.store.UpsertPick(context.Background(), models.NewConfidencePick("wm40", f.alice.ID, map[string]models.Choice{
			"m1": {Winner: "Cody Rhodes", Confidence: 40},
			"m2": {Winner: "Rhea Ripley", Confidence: 60},
		})), ShouldBeNil)

		Convey("Scoring requires a token", func() {
			rec := f.do(http.MethodPost, "/api/events/wm40/score", "", "")
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Scoring requires an admin", func() {
			rec := f.do(http.MethodPost, "/api/events/wm40/score", f.userToken, "")
			So(rec.Code, ShouldEqual, http.StatusForbidden)
			So(decode(rec)["message"], ShouldEqual, "Not authorized as admin")
		})

		Convey("An admin scores the event once", func() {
			rec := f.do(http.MethodPost, "/api/events/wm40/score", f.adminToken, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["message"], ShouldEqual, "Event scored successfully")
			So(body["usersScored"], ShouldEqual, 1)
			So(body["membershipsUpdated"], ShouldEqual, 1)
			So(body["membershipsSkipped"], ShouldEqual, 0)
			So(body["legacySkipped"], ShouldEqual, 0)

			standings := f.do(http.MethodGet, "/api/leagues/L1/standings", f.userToken, "")
			So(standings.Code, ShouldEqual, http.StatusOK)
			var rows []models.StandingEntry
			So(json.Unmarshal(standings.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].TotalPoints, ShouldEqual, 130.0)

			Convey("and a second attempt is rejected", func() {
				again := f.do(http.MethodPost, "/api/events/wm40/score", f.adminToken, "")
				So(again.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(again)["message"], ShouldEqual, "Event has already been scored")
			})
		})

		Convey("An unknown event is a 404", func() {
			rec := f.do(http.MethodPost, "/api/events/nope/score", f.adminToken, "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["message"], ShouldEqual, "Event not found")
		})

		Convey("An event without results cannot be scored", func() {
			rec := f.do(http.MethodPost, "/api/events/sd/score", f.adminToken, "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(rec)["message"], ShouldEqual, "All matches must have winners before scoring")
		})

		Convey("Preview reports scores without writing them", func() {
			rec := f.do(http.MethodGet, "/api/events/wm40/preview", f.adminToken, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var sheet services.ScoreSheet
			So(json.Unmarshal(rec.Body.Bytes(), &sheet), ShouldBeNil)
			So(sheet.Scores[f.alice.ID].Points, ShouldEqual, 130.0)

			event, _ := f.store.GetEventWithMatches(context.Background(), "wm40")
			So(event.Scored, ShouldBeFalse)
		})
	})
}

func TestPickRoutes(t *testing.T) {
	Convey("Given an open event", t, func() {
		f := newFixture()

		Convey("A valid submission is saved and can be read back", func() {
			body := `{"eventId":"sd","choices":{"m1":{"winner":"LA Knight","confidence":70},"m2":{"winner":"Bayley","confidence":30}}}`
			rec := f.do(http.MethodPost, "/api/picks", f.userToken, body)
			So(rec.Code, ShouldEqual, http.StatusOK)

			got := f.do(http.MethodGet, "/api/picks/event/sd", f.userToken, "")
			So(got.Code, ShouldEqual, http.StatusOK)
			var pick models.Pick
			So(json.Unmarshal(got.Body.Bytes(), &pick), ShouldBeNil)
			So(pick.Choices["m1"].Confidence, ShouldEqual, 70)
		})

		Convey("A total other than 100 is rejected with the reason", func() {
			body := `{"eventId":"sd","choices":{"m1":{"winner":"LA Knight","confidence":70},"m2":{"winner":"Bayley","confidence":40}}}`
			rec := f.do(http.MethodPost, "/api/picks", f.userToken, body)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(rec)["message"], ShouldEqual, "total confidence must equal 100. Current total: 110")
		})

		Convey("A locked event rejects picks", func() {
			body := `{"eventId":"wm40","choices":{"m1":{"winner":"Cody Rhodes","confidence":50},"m2":{"winner":"Rhea Ripley","confidence":50}}}`
			rec := f.do(http.MethodPost, "/api/picks", f.userToken, body)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(rec)["message"], ShouldEqual, "Event is locked. Cannot submit or update picks.")
		})

		Convey("Malformed JSON is a 400", func() {
			rec := f.do(http.MethodPost, "/api/picks", f.userToken, `{"eventId":`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Reading a missing pick is a 404", func() {
			rec := f.do(http.MethodGet, "/api/picks/event/sd", f.userToken, "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAuthAndLeaderboardRoutes(t *testing.T) {
	Convey("Given registered users", t, func() {
		f := newFixture()

		Convey("Login returns a token and sets the cookie", func() {
			rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"alicepass"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp models.AuthResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Token, ShouldNotBeEmpty)
			So(resp.User.Email, ShouldEqual, "alice@example.com")
			So(rec.Body.String(), ShouldNotContainSubstring, "password")

			cookies := rec.Result().Cookies()
			So(cookies, ShouldHaveLength, 1)
			So(cookies[0].Name, ShouldEqual, "auth_token")
			So(cookies[0].HttpOnly, ShouldBeTrue)

			Convey("and the cookie authenticates later requests", func() {
				req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
				req.AddCookie(cookies[0])
				me := httptest.NewRecorder()
				f.router.ServeHTTP(me, req)
				So(me.Code, ShouldEqual, http.StatusOK)
				So(decode(me)["displayName"], ShouldEqual, "Alice")
			})
		})

		Convey("A wrong password is a 401", func() {
			rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"nope"}`)
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode(rec)["message"], ShouldEqual, "Invalid email or password")
		})

		Convey("Missing fields are a 400", func() {
			rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown league is a 404", func() {
			rec := f.do(http.MethodGet, "/api/leagues/nope/standings", f.userToken, "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["message"], ShouldEqual, "League not found")
		})

		Convey("The global leaderboard accepts a limit", func() {
			rec := f.do(http.MethodGet, "/api/leaderboard?limit=abc", f.userToken, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var entries []models.LeaderboardEntry
			So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Rank, ShouldEqual, 1)
		})

		Convey("Health and metrics are public", func() {
			rec := f.do(http.MethodGet, "/api/health", "", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["status"], ShouldEqual, "ok")
			So(rec.Header().Get("X-Content-Type-Options"), ShouldEqual, "nosniff")

			metricsRec := f.do(http.MethodGet, "/metrics", "", "")
			So(metricsRec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Wrong methods are rejected", func() {
			rec := f.do(http.MethodGet, "/api/events/wm40/score", f.adminToken, "")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(decode(rec)["message"], ShouldEqual, "Method not allowed")

			rec = f.do(http.MethodDelete, "/api/picks", f.userToken, "")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Unknown API routes are a JSON 404", func() {
			rec := f.do(http.MethodGet, "/api/nothing/here", f.userToken, "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["message"], ShouldEqual, "Route not found")
		})
	})
}

func TestWebsocketRoute(t *testing.T) {
	Convey("Given a running hub behind the router", t, func() {
		f := newFixture()

		ctx, cancel := context.WithCancel(context.Background())
		hub := handlers.NewHub(nil)
		go hub.Run(ctx)

		deps := f.deps
		deps.Hub = hub
		srv := httptest.NewServer(handlers.NewRouter(deps))
		Reset(func() {
			srv.Close()
			cancel()
		})

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

		Convey("A signed-in client is counted by the health check and receives notifications", func() {
			header := http.Header{"Authorization": []string{"Bearer " + f.userToken}}
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
			So(err, ShouldBeNil)
			defer conn.Close()

			So(eventually(func() bool { return hub.ClientCount() == 1 }), ShouldBeTrue)

			resp, err := http.Get(srv.URL + "/api/health")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			var body map[string]interface{}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body["websocketClients"], ShouldEqual, 1)

			So(hub.Notify(context.Background(), services.Notification{
				Type:    services.NotificationEventScored,
				EventID: "wm40",
			}), ShouldBeNil)

			So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
			_, msg, err := conn.ReadMessage()
			So(err, ShouldBeNil)
			So(string(msg), ShouldContainSubstring, `"eventId":"wm40"`)
		})

		Convey("Anonymous viewers may connect", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			So(eventually(func() bool { return hub.ClientCount() == 1 }), ShouldBeTrue)
		})
	})
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
