package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"poll-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRouter(t *testing.T) (*gin.Engine, *PollService, *fakeDirectory, primitive.ObjectID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemoryPollRepository()
	dir := newFakeDirectory()
	svc := NewPollService(repo, dir)
	handler := NewPollHandler(svc, nil)

	authedUser := primitive.NewObjectID()
	dir.profiles[authedUser] = Profile{Name: "Alice"}

	r := gin.New()
	r.GET("/polls", handler.ListPolls)
	r.GET("/polls/:id", handler.GetPoll)

	authed := r.Group("/")
	authed.Use(func(c *gin.Context) {
		c.Set("user_id", authedUser.Hex())
	})
	authed.POST("/polls", handler.CreatePoll)
	authed.POST("/polls/:id/vote", handler.Vote)
	authed.POST("/polls/:id/like", handler.ToggleLike)
	authed.POST("/polls/:id/comment", handler.AddComment)
	authed.DELETE("/polls/:id/comments/:commentId", handler.RemoveComment)
	authed.PUT("/polls/:id", handler.UpdatePoll)
	authed.DELETE("/polls/:id", handler.DeletePoll)

	return r, svc, dir, authedUser
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestHandlerCreatePoll(t *testing.T) {
	r, _, _, author := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/polls", gin.H{
		"question": "Favorite language?",
		"options":  []string{"Go", "Rust"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Favorite language?", created.Question)
	assert.Equal(t, author.Hex(), created.Author.ID)
	assert.Equal(t, "Alice", created.Author.Name)
}

func TestHandlerCreatePollStringEncodedOptions(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	// the shape some clients send: options as a JSON-encoded string
	w := doJSON(t, r, http.MethodPost, "/polls", gin.H{
		"question": "Favorite language?",
		"options":  `["Go","Rust","Zig"]`,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.Options, 3)
}

func TestHandlerCreatePollValidation(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	t.Run("missing question", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls", gin.H{"options": []string{"A", "B"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeValidation, errorCode(t, w))
	})

	t.Run("too few options", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls", gin.H{
			"question": "Q?",
			"options":  []string{"only"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeValidation, errorCode(t, w))
	})
}

func TestHandlerVoteFlow(t *testing.T) {
	r, svc, _, author := newTestRouter(t)
	created, err := svc.Create(context.Background(), author, CreatePollInput{
		Question: "Q?",
		Options:  []string{"A", "B"},
	})
	require.NoError(t, err)

	t.Run("vote lands", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/vote", gin.H{"optionIndex": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var p PollResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, 1, p.TotalVotes)
		assert.Equal(t, 1, p.Options[1].Votes)
	})

	t.Run("second vote conflicts", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/vote", gin.H{"optionIndex": 0})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.CodeAlreadyVoted, errorCode(t, w))
	})

	t.Run("option index after voting", func(t *testing.T) {
		// the duplicate-vote check fires before the option index check
		w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/vote", gin.H{"optionIndex": 9})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing optionIndex", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/vote", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown poll", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls/"+primitive.NewObjectID().Hex()+"/vote", gin.H{"optionIndex": 0})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, response.CodeNotFound, errorCode(t, w))
	})

	t.Run("malformed poll id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls/garbage/vote", gin.H{"optionIndex": 0})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandlerVoteInvalidOption(t *testing.T) {
	r, svc, _, author := newTestRouter(t)
	created, err := svc.Create(context.Background(), author, CreatePollInput{
		Question: "Q?",
		Options:  []string{"A", "B"},
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/vote", gin.H{"optionIndex": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidOption, errorCode(t, w))
}

func TestHandlerVoteInactivePoll(t *testing.T) {
	r, svc, _, author := newTestRouter(t)
	created, err := svc.Create(context.Background(), author, CreatePollInput{
		Question: "Q?",
		Options:  []string{"A", "B"},
	})
	require.NoError(t, err)

	// deactivate directly through the repository
	id, err := primitive.ObjectIDFromHex(created.ID)
	require.NoError(t, err)
	p, err := svc.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	p.IsActive = false
	ok, err := svc.repo.Update(context.Background(), p)
	require.NoError(t, err)
	require.True(t, ok)

	w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/vote", gin.H{"optionIndex": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodePollNotActive, errorCode(t, w))
}

func TestHandlerLikeAndComment(t *testing.T) {
	r, svc, _, author := newTestRouter(t)
	created, err := svc.Create(context.Background(), author, CreatePollInput{
		Question: "Q?",
		Options:  []string{"A", "B"},
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 1, p.LikesCount)

	w = doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/comment", gin.H{"text": "nice"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	require.Len(t, p.Comments, 1)

	t.Run("empty comment", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/polls/"+created.ID+"/comment", gin.H{"text": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeEmptyComment, errorCode(t, w))
	})

	t.Run("remove comment", func(t *testing.T) {
		w := doJSON(t, r, http.MethodDelete,
			fmt.Sprintf("/polls/%s/comments/%s", created.ID, p.Comments[0].ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("remove missing comment", func(t *testing.T) {
		w := doJSON(t, r, http.MethodDelete,
			fmt.Sprintf("/polls/%s/comments/%s", created.ID, primitive.NewObjectID().Hex()), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, response.CodeNotFound, errorCode(t, w))
	})
}

func TestHandlerUpdateAndDelete(t *testing.T) {
	r, svc, _, author := newTestRouter(t)
	created, err := svc.Create(context.Background(), author, CreatePollInput{
		Question: "Q?",
		Options:  []string{"A", "B"},
	})
	require.NoError(t, err)

	t.Run("edit question", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/polls/"+created.ID, gin.H{"question": "Better question?"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var p PollResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, "Better question?", p.Question)
	})

	t.Run("replace options after a vote", func(t *testing.T) {
		_, err := svc.Vote(context.Background(), created.ID, primitive.NewObjectID(), 0)
		require.NoError(t, err)

		w := doJSON(t, r, http.MethodPut, "/polls/"+created.ID, gin.H{"options": []string{"X", "Y"}})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.CodePollHasVotes, errorCode(t, w))
	})

	t.Run("delete", func(t *testing.T) {
		w := doJSON(t, r, http.MethodDelete, "/polls/"+created.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, r, http.MethodGet, "/polls/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandlerListPolls(t *testing.T) {
	r, svc, _, author := newTestRouter(t)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), author, CreatePollInput{
			Question: "Q?",
			Options:  []string{"A", "B"},
		})
		require.NoError(t, err)
	}

	w := doJSON(t, r, http.MethodGet, "/polls?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page PagedPollsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Polls, 2)
	assert.Equal(t, int64(3), page.TotalPolls)
	assert.Equal(t, 2, page.TotalPages)
}

func TestHandlerUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newMemoryPollRepository()
	handler := NewPollHandler(NewPollService(repo, newFakeDirectory()), nil)

	r := gin.New()
	r.POST("/polls", handler.CreatePoll)

	w := doJSON(t, r, http.MethodPost, "/polls", gin.H{
		"question": "Q?",
		"options":  []string{"A", "B"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.CodeUnauthorized, errorCode(t, w))
}
