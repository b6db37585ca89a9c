package poll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryPollRepository implements PollRepository in memory with the same
// compare-and-swap contract as the mongo implementation: Update only
// succeeds when the stored version still matches the caller's snapshot.
type memoryPollRepository struct {
	mu    sync.Mutex
	polls map[primitive.ObjectID]*Poll
}

func newMemoryPollRepository() *memoryPollRepository {
	return &memoryPollRepository{polls: make(map[primitive.ObjectID]*Poll)}
}

func clonePoll(p *Poll) *Poll {
	cp := *p
	cp.Options = append([]Option(nil), p.Options...)
	cp.Voters = append([]primitive.ObjectID(nil), p.Voters...)
	cp.Likes = append([]primitive.ObjectID(nil), p.Likes...)
	cp.Comments = append([]Comment(nil), p.Comments...)
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}

func (r *memoryPollRepository) Insert(_ context.Context, p *Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls[p.ID] = clonePoll(p)
	return nil
}

func (r *memoryPollRepository) FindByID(_ context.Context, id primitive.ObjectID) (*Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, ErrPollNotFound
	}
	return clonePoll(p), nil
}

func (r *memoryPollRepository) Update(_ context.Context, p *Poll) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.polls[p.ID]
	if !ok || stored.Version != p.Version {
		return false, nil
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	r.polls[p.ID] = clonePoll(p)
	return true, nil
}

func (r *memoryPollRepository) Delete(_ context.Context, id, authorID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok || p.Author != authorID {
		return false, nil
	}
	delete(r.polls, id)
	return true, nil
}

func (r *memoryPollRepository) ListActive(_ context.Context, page, limit int) ([]*Poll, int64, error) {
	return r.listWhere(func(p *Poll) bool { return p.IsActive }, page, limit)
}

func (r *memoryPollRepository) ListByAuthor(_ context.Context, authorID primitive.ObjectID, page, limit int) ([]*Poll, int64, error) {
	return r.listWhere(func(p *Poll) bool { return p.Author == authorID }, page, limit)
}

func (r *memoryPollRepository) listWhere(match func(*Poll) bool, page, limit int) ([]*Poll, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*Poll, 0)
	for _, p := range r.polls {
		if match(p) {
			matched = append(matched, clonePoll(p))
		}
	}
	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []*Poll{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// fakeDirectory records stat updates and serves canned profiles.
type fakeDirectory struct {
	mu            sync.Mutex
	profiles      map[primitive.ObjectID]Profile
	pollsCreated  map[primitive.ObjectID]int
	votesReceived map[primitive.ObjectID]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles:      make(map[primitive.ObjectID]Profile),
		pollsCreated:  make(map[primitive.ObjectID]int),
		votesReceived: make(map[primitive.ObjectID]int),
	}
}

func (d *fakeDirectory) Profiles(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[primitive.ObjectID]Profile, len(ids))
	for _, id := range ids {
		if p, ok := d.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (d *fakeDirectory) AddPollsCreated(_ context.Context, userID primitive.ObjectID, delta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollsCreated[userID] += delta
	return nil
}

func (d *fakeDirectory) AddVotesReceived(_ context.Context, userID primitive.ObjectID, count int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.votesReceived[userID] += count
	return nil
}

func newTestService(t *testing.T) (*PollService, *memoryPollRepository, *fakeDirectory) {
	t.Helper()
	repo := newMemoryPollRepository()
	dir := newFakeDirectory()
	return NewPollService(repo, dir), repo, dir
}

func createTestServicePoll(t *testing.T, svc *PollService, dir *fakeDirectory) (*PollResponse, primitive.ObjectID) {
	t.Helper()
	author := primitive.NewObjectID()
	dir.mu.Lock()
	dir.profiles[author] = Profile{Name: "Alice", Avatar: "http://img/alice.png"}
	dir.mu.Unlock()

	resp, err := svc.Create(context.Background(), author, CreatePollInput{
		Question: "Favorite language?",
		Options:  []string{"Go", "Rust", "Python"},
	})
	require.NoError(t, err)
	return resp, author
}

func TestServiceCreate(t *testing.T) {
	svc, _, dir := newTestService(t)

	resp, author := createTestServicePoll(t, svc, dir)

	assert.Equal(t, "Favorite language?", resp.Question)
	assert.Equal(t, "Alice", resp.Author.Name)
	assert.Equal(t, author.Hex(), resp.Author.ID)
	assert.True(t, resp.IsActive)
	assert.Equal(t, 1, dir.pollsCreated[author])
}

func TestServiceCreateInvalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), primitive.NewObjectID(), CreatePollInput{
		Question: "Q?",
		Options:  []string{"only"},
	})
	assert.ErrorIs(t, err, ErrInvalidOptionCount)
}

func TestServiceGet(t *testing.T) {
	svc, _, dir := newTestService(t)
	created, _ := createTestServicePoll(t, svc, dir)

	t.Run("found", func(t *testing.T) {
		resp, err := svc.Get(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, resp.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Get(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrPollNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.Get(context.Background(), "not-an-id")
		assert.ErrorIs(t, err, ErrInvalidPollID)
	})
}

func TestServiceVote(t *testing.T) {
	svc, _, dir := newTestService(t)
	created, author := createTestServicePoll(t, svc, dir)
	voter := primitive.NewObjectID()

	resp, err := svc.Vote(context.Background(), created.ID, voter, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.TotalVotes)
	assert.Equal(t, 1, resp.Options[1].Votes)
	assert.Contains(t, resp.Voters, voter.Hex())
	assert.Equal(t, 1, dir.votesReceived[author])

	_, err = svc.Vote(context.Background(), created.ID, voter, 0)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, 1, dir.votesReceived[author])
}

// Concurrent votes by the same user must commit at most once regardless of
// interleaving; the version check forces losers to re-read and re-check.
func TestServiceVoteConcurrentSameUser(t *testing.T) {
	svc, repo, dir := newTestService(t)
	created, _ := createTestServicePoll(t, svc, dir)
	voter := primitive.NewObjectID()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			_, err := svc.Vote(context.Background(), created.ID, voter, option%3)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyVoted)
		}
	}
	assert.Equal(t, 1, succeeded)

	id, err := primitive.ObjectIDFromHex(created.ID)
	require.NoError(t, err)
	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVotes)
	assert.Len(t, stored.Voters, 1)
}

func TestServiceVoteConcurrentDistinctUsers(t *testing.T) {
	svc, repo, dir := newTestService(t)
	created, _ := createTestServicePoll(t, svc, dir)

	const voters = 8
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			// retries inside the service absorb version conflicts; under
			// heavy contention a caller can still see ErrConcurrentUpdate,
			// which is a valid outcome as long as counts stay consistent.
			_, _ = svc.Vote(context.Background(), created.ID, primitive.NewObjectID(), option%3)
		}(i)
	}
	wg.Wait()

	id, err := primitive.ObjectIDFromHex(created.ID)
	require.NoError(t, err)
	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	sum := 0
	for _, opt := range stored.Options {
		sum += opt.Votes
	}
	assert.Equal(t, sum, stored.TotalVotes)
	assert.Equal(t, len(stored.Voters), stored.TotalVotes)
	assert.LessOrEqual(t, stored.TotalVotes, voters)
}

func TestServiceToggleLike(t *testing.T) {
	svc, _, dir := newTestService(t)
	created, _ := createTestServicePoll(t, svc, dir)
	user := primitive.NewObjectID()

	resp, err := svc.ToggleLike(context.Background(), created.ID, user)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.LikesCount)

	resp, err = svc.ToggleLike(context.Background(), created.ID, user)
	require.NoError(t, err)
	assert.Zero(t, resp.LikesCount)
}

func TestServiceComments(t *testing.T) {
	svc, _, dir := newTestService(t)
	created, _ := createTestServicePoll(t, svc, dir)
	commenter := primitive.NewObjectID()
	dir.mu.Lock()
	dir.profiles[commenter] = Profile{Name: "Bob"}
	dir.mu.Unlock()

	resp, err := svc.AddComment(context.Background(), created.ID, commenter, "first!")
	require.NoError(t, err)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "first!", resp.Comments[0].Text)
	assert.Equal(t, "Bob", resp.Comments[0].Author.Name)
	assert.Equal(t, 1, resp.CommentsCount)

	commentID := resp.Comments[0].ID

	t.Run("stranger cannot remove", func(t *testing.T) {
		_, err := svc.RemoveComment(context.Background(), created.ID, commentID, primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrCommentNotFound)
	})

	t.Run("author removes", func(t *testing.T) {
		resp, err := svc.RemoveComment(context.Background(), created.ID, commentID, commenter)
		require.NoError(t, err)
		assert.Zero(t, resp.CommentsCount)
	})

	t.Run("malformed comment id", func(t *testing.T) {
		_, err := svc.RemoveComment(context.Background(), created.ID, "bogus", commenter)
		assert.ErrorIs(t, err, ErrCommentNotFound)
	})
}

func TestServiceEdit(t *testing.T) {
	svc, _, dir := newTestService(t)
	created, author := createTestServicePoll(t, svc, dir)

	t.Run("author edits question", func(t *testing.T) {
		resp, err := svc.Edit(context.Background(), created.ID, author, EditPollInput{Question: "Best language?"})
		require.NoError(t, err)
		assert.Equal(t, "Best language?", resp.Question)
	})

	t.Run("non author rejected", func(t *testing.T) {
		_, err := svc.Edit(context.Background(), created.ID, primitive.NewObjectID(), EditPollInput{Question: "Hijack?"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("options reset votes blocked after voting", func(t *testing.T) {
		_, err := svc.Vote(context.Background(), created.ID, primitive.NewObjectID(), 0)
		require.NoError(t, err)

		_, err = svc.Edit(context.Background(), created.ID, author, EditPollInput{Options: []string{"Tea", "Coffee"}})
		assert.ErrorIs(t, err, ErrPollHasVotes)
	})
}

func TestServiceDelete(t *testing.T) {
	svc, _, dir := newTestService(t)
	created, author := createTestServicePoll(t, svc, dir)

	t.Run("non author sees not found", func(t *testing.T) {
		err := svc.Delete(context.Background(), created.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrPollNotFound)
	})

	t.Run("author deletes", func(t *testing.T) {
		require.NoError(t, svc.Delete(context.Background(), created.ID, author))
		assert.Zero(t, dir.pollsCreated[author])

		_, err := svc.Get(context.Background(), created.ID)
		assert.ErrorIs(t, err, ErrPollNotFound)
	})
}

func TestServiceListActive(t *testing.T) {
	svc, _, dir := newTestService(t)
	author := primitive.NewObjectID()
	dir.mu.Lock()
	dir.profiles[author] = Profile{Name: "Alice"}
	dir.mu.Unlock()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), author, CreatePollInput{
			Question: "Q?",
			Options:  []string{"A", "B"},
		})
		require.NoError(t, err)
	}

	resp, err := svc.ListActive(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Polls, 2)
	assert.Equal(t, int64(3), resp.TotalPolls)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.CurrentPage)

	resp, err = svc.ListActive(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Polls, 1)

	t.Run("page defaults clamp", func(t *testing.T) {
		resp, err := svc.ListActive(context.Background(), 0, -1)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.CurrentPage)
		assert.Len(t, resp.Polls, 3)
	})
}

func TestServiceListByAuthor(t *testing.T) {
	svc, _, dir := newTestService(t)
	_, author := createTestServicePoll(t, svc, dir)
	createTestServicePoll(t, svc, dir)

	resp, err := svc.ListByAuthor(context.Background(), author, 1, 10)
	require.NoError(t, err)
	assert.Len(t, resp.Polls, 1)
	assert.Equal(t, author.Hex(), resp.Polls[0].Author.ID)
}
