package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-live/apps/api/echo"
	"github.com/trezcool/masomo-live/apps/api/ws"
	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
	"github.com/trezcool/masomo-live/storage/database/inmem"
	"github.com/trezcool/masomo-live/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type app struct {
	conf   *core.Config
	svc    *lecture.Service
	server *echoapi.Server
}

func setup(t *testing.T) *app {
	t.Helper()

	conf := &core.Config{
		AppName:   "Masomo",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Live: core.LiveConfig{
			SendBufferSize: 32,
			ReadLimit:      64 * 1024,
			WriteWait:      time.Second,
			PongWait:       time.Minute,
			PingInterval:   30 * time.Second,
			MessageRate:    100,
			MessageBurst:   100,
		},
	}

	repo := inmemdb.NewLectureRepository(inmemdb.Open())
	testutil.CreateLecture(t, repo, "R1", "P", lecture.StatusScheduled)

	svc := lecture.NewService(repo, core.NopLogger, lecture.Options{
		HeartbeatTimeout: 10 * time.Minute,
		ActiveWindow:     5 * time.Minute,
		RoomIdleTTL:      30 * time.Minute,
		PersistQueueSize: 64,
		PersistWorkers:   1,
		PersistTimeout:   time.Second,
	}, nil)
	t.Cleanup(svc.Close)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	server := echoapi.NewServer(&echoapi.ServerDeps{
		Conf:       conf,
		Logger:     core.NopLogger,
		LectureSvc: svc,
		Live:       ws.NewHandler(svc, validate, translator, core.NopLogger, ws.NewOptions(conf.Live)),
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = server.Close() })

	return &app{conf: conf, svc: svc, server: server}
}

func (a *app) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := echoapi.GenerateToken(a.conf.SecretKey, echoapi.NewClaims(a.conf, userID, "Name "+userID, role))
	require.NoError(t, err)
	return token
}

// join makes userID a member of roomID through a fake connection.
func (a *app) join(t *testing.T, roomID, userID string) *testutil.FakeConn {
	t.Helper()
	conn := testutil.NewFakeConn()
	a.svc.Connect(conn)
	_, err := a.svc.Join(context.Background(), conn.ID(), lecture.JoinRequest{RoomID: roomID, UserID: userID})
	require.NoError(t, err)
	return conn
}

func (a *app) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func TestServer_home(t *testing.T) {
	a := setup(t)

	rec := a.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Live!", rec.Body.String())

	rec = a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","build":""}`, rec.Body.String())
}

func Test_lectureApi_stats(t *testing.T) {
	a := setup(t)
	a.join(t, "R1", "P")
	a.join(t, "R1", "S1")
	token := a.token(t, "S1", lecture.RoleStudent)

	tests := []struct {
		name      string
		path      string
		token     string
		wantCode  int
		wantError string
	}{
		{name: "missing token", path: "/v1/lectures/R1/stats", wantCode: http.StatusUnauthorized},
		{name: "unknown lecture", path: "/v1/lectures/nope/stats", token: token, wantCode: http.StatusNotFound, wantError: lecture.ErrRoomNotFound.Error()},
		{name: "ok", path: "/v1/lectures/R1/stats", token: token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodGet, tt.path, tt.token, nil)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantError != "" {
				var got httpErr
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, tt.wantError, got.Error)
			}
			if tt.wantCode == http.StatusOK {
				var stats lecture.RoomStats
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
				assert.Equal(t, "R1", stats.LectureID)
				assert.Equal(t, "P", stats.ProfessorID)
				assert.Equal(t, 2, stats.ParticipantCount)
				assert.Equal(t, 2, stats.ActiveParticipantCount)
			}
		})
	}
}

func Test_lectureApi_subtitles(t *testing.T) {
	a := setup(t)
	student := a.join(t, "R1", "S1")
	profToken := a.token(t, "P", lecture.RoleProfessor)

	tests := []struct {
		name       string
		path       string
		token      string
		body       string
		wantCode   int
		wantFields []string
	}{
		{
			name:     "students cannot post",
			path:     "/v1/lectures/R1/subtitles",
			token:    a.token(t, "S1", lecture.RoleStudent),
			body:     `{"text":"hello"}`,
			wantCode: http.StatusForbidden,
		},
		{
			name:       "blank text",
			path:       "/v1/lectures/R1/subtitles",
			token:      profToken,
			body:       `{"text":"   "}`,
			wantCode:   http.StatusBadRequest,
			wantFields: []string{"text"},
		},
		{
			name:     "malformed body",
			path:     "/v1/lectures/R1/subtitles",
			token:    profToken,
			body:     `{"text":`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "room not in memory",
			path:     "/v1/lectures/R2/subtitles",
			token:    profToken,
			body:     `{"text":"hello"}`,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "ok",
			path:     "/v1/lectures/R1/subtitles",
			token:    a.token(t, "admin", lecture.RoleAdmin),
			body:     `{"text":" hello class ","language":"en"}`,
			wantCode: http.StatusAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, tt.path, tt.token, []byte(tt.body))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if len(tt.wantFields) > 0 {
				var fields map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
				for _, fld := range tt.wantFields {
					assert.Contains(t, fields, fld)
				}
			}
		})
	}

	require.Equal(t, 1, student.Count(lecture.EventNewSubtitle))
	ev, _ := student.Last(lecture.EventNewSubtitle)
	subtitle, ok := ev.Payload.(lecture.Subtitle)
	require.True(t, ok)
	assert.Equal(t, "hello class", subtitle.Text)
	assert.Equal(t, "en", subtitle.Language)
}

func Test_liveApi(t *testing.T) {
	a := setup(t)
	srv := httptest.NewServer(a.server)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/live"

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("join", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+a.token(t, "S1", lecture.RoleStudent), nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": lecture.CmdJoinLecture,
			"data": map[string]string{"lectureId": "R1", "userId": "S1"},
		}))

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg struct {
			Type string           `json:"type"`
			Data lecture.Snapshot `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, lecture.EventLectureState, msg.Type)
		require.Len(t, msg.Data.Participants, 1)
		assert.Equal(t, lecture.Identity{Name: "Name S1", Role: lecture.RoleStudent}, msg.Data.Participants[0].UserInfo)
	})
}
