package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
	"github.com/Kiptoo96/esports-arena/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUploader records uploads in memory.
type fakeUploader struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	failNext bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failNext {
		u.failNext = false
		return nil, io.ErrUnexpectedEOF
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key, ETag: "etag"}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

// fakeTransactor runs the callback without a real transaction; the fake
// repositories ignore the executor entirely.
type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

func intPtr(v int) *int { return &v }

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// --- match repository ---

type fakeMatchRepo struct {
	mu      sync.Mutex
	seq     int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	c.Player1ID = copyIntPtr(m.Player1ID)
	c.Player2ID = copyIntPtr(m.Player2ID)
	c.Player1Score = copyIntPtr(m.Player1Score)
	c.Player2Score = copyIntPtr(m.Player2Score)
	c.Player1Kills = copyIntPtr(m.Player1Kills)
	c.Player2Kills = copyIntPtr(m.Player2Kills)
	c.Player1Deaths = copyIntPtr(m.Player1Deaths)
	c.Player2Deaths = copyIntPtr(m.Player2Deaths)
	c.Player1Headshots = copyIntPtr(m.Player1Headshots)
	c.Player2Headshots = copyIntPtr(m.Player2Headshots)
	c.ProposedPlayer1Score = copyIntPtr(m.ProposedPlayer1Score)
	c.ProposedPlayer2Score = copyIntPtr(m.ProposedPlayer2Score)
	c.ProposedPlayer1Kills = copyIntPtr(m.ProposedPlayer1Kills)
	c.ProposedPlayer2Kills = copyIntPtr(m.ProposedPlayer2Kills)
	c.ProposedPlayer1Deaths = copyIntPtr(m.ProposedPlayer1Deaths)
	c.ProposedPlayer2Deaths = copyIntPtr(m.ProposedPlayer2Deaths)
	c.ProposedPlayer1Headshots = copyIntPtr(m.ProposedPlayer1Headshots)
	c.ProposedPlayer2Headshots = copyIntPtr(m.ProposedPlayer2Headshots)
	c.ProposedBy = copyIntPtr(m.ProposedBy)
	c.Player1ConfirmedAt = copyTimePtr(m.Player1ConfirmedAt)
	c.Player2ConfirmedAt = copyTimePtr(m.Player2ConfirmedAt)
	c.WinnerID = copyIntPtr(m.WinnerID)
	if m.WinnerMethod != nil {
		method := *m.WinnerMethod
		c.WinnerMethod = &method
	}
	if m.DisputeReason != nil {
		reason := *m.DisputeReason
		c.DisputeReason = &reason
	}
	c.NextMatchID = copyIntPtr(m.NextMatchID)
	c.CompletedAt = copyTimePtr(m.CompletedAt)
	return &c
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = r.seq
	m.CreatedAt = time.Now()
	r.matches[m.ID] = cloneMatch(m)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		out = append(out, cloneMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r *fakeMatchRepo) CountByTournamentAndRound(ctx context.Context, tournamentID, round int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Round == round {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) GetFinalMatch(ctx context.Context, tournamentID int) (*models.Match, error) {
	matches, _ := r.ListByTournament(ctx, tournamentID, nil)
	if len(matches) == 0 {
		return nil, repositories.ErrMatchNotFound
	}
	return matches[len(matches)-1], nil
}

func (r *fakeMatchRepo) SetNextMatchID(ctx context.Context, exec repositories.SQLExecutor, matchID, nextMatchID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok || m.NextMatchID != nil {
		return repositories.ErrMatchStateConflict
	}
	m.NextMatchID = intPtr(nextMatchID)
	return nil
}

func statusIn(status models.MatchStatus, from []models.MatchStatus) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}

func (r *fakeMatchRepo) StageScoreProposal(ctx context.Context, exec repositories.SQLExecutor, id int, p repositories.ScoreProposal, fromStatuses []models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || !statusIn(m.Status, fromStatuses) {
		return repositories.ErrMatchStateConflict
	}
	m.ProposedPlayer1Score = intPtr(p.Player1Score)
	m.ProposedPlayer2Score = intPtr(p.Player2Score)
	m.ProposedBy = intPtr(p.ProposedBy)
	m.Status = models.MatchStatusAwaitingConfirmation
	return nil
}

func (r *fakeMatchRepo) StageStatsProposal(ctx context.Context, exec repositories.SQLExecutor, id int, p repositories.StatsProposal, fromStatuses []models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || !statusIn(m.Status, fromStatuses) {
		return repositories.ErrMatchStateConflict
	}
	m.ProposedPlayer1Kills = intPtr(p.Player1Kills)
	m.ProposedPlayer2Kills = intPtr(p.Player2Kills)
	m.ProposedPlayer1Deaths = copyIntPtr(p.Player1Deaths)
	m.ProposedPlayer2Deaths = copyIntPtr(p.Player2Deaths)
	m.ProposedPlayer1Headshots = copyIntPtr(p.Player1Headshots)
	m.ProposedPlayer2Headshots = copyIntPtr(p.Player2Headshots)
	m.ProposedBy = intPtr(p.ProposedBy)
	m.Status = models.MatchStatusAwaitingConfirmation
	return nil
}

func (r *fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, c repositories.MatchCompletion, fromStatuses []models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || !statusIn(m.Status, fromStatuses) {
		return repositories.ErrMatchStateConflict
	}
	if c.Player1Score != nil {
		m.Player1Score = copyIntPtr(c.Player1Score)
	}
	if c.Player2Score != nil {
		m.Player2Score = copyIntPtr(c.Player2Score)
	}
	if c.Player1Kills != nil {
		m.Player1Kills = copyIntPtr(c.Player1Kills)
	}
	if c.Player2Kills != nil {
		m.Player2Kills = copyIntPtr(c.Player2Kills)
	}
	if c.Player1Deaths != nil {
		m.Player1Deaths = copyIntPtr(c.Player1Deaths)
	}
	if c.Player2Deaths != nil {
		m.Player2Deaths = copyIntPtr(c.Player2Deaths)
	}
	if c.Player1Headshots != nil {
		m.Player1Headshots = copyIntPtr(c.Player1Headshots)
	}
	if c.Player2Headshots != nil {
		m.Player2Headshots = copyIntPtr(c.Player2Headshots)
	}
	m.WinnerID = intPtr(c.WinnerID)
	method := c.WinnerMethod
	m.WinnerMethod = &method
	m.Player1Confirmed = c.Player1Confirmed
	m.Player2Confirmed = c.Player2Confirmed
	m.Player1ConfirmedAt = copyTimePtr(c.Player1ConfirmedAt)
	m.Player2ConfirmedAt = copyTimePtr(c.Player2ConfirmedAt)
	if c.DisputeReason != nil {
		reason := *c.DisputeReason
		m.DisputeReason = &reason
	}
	completedAt := c.CompletedAt
	m.CompletedAt = &completedAt
	m.Status = models.MatchStatusCompleted
	return nil
}

func (r *fakeMatchRepo) MarkDisputed(ctx context.Context, exec repositories.SQLExecutor, id int, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || m.Status != models.MatchStatusAwaitingConfirmation {
		return repositories.ErrMatchStateConflict
	}
	m.Status = models.MatchStatusDisputed
	m.DisputeReason = &reason
	return nil
}

func (r *fakeMatchRepo) ClaimSlot(ctx context.Context, exec repositories.SQLExecutor, matchID, winnerID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return 0, nil
	}
	if m.Player1ID == nil && (m.Player2ID == nil || *m.Player2ID != winnerID) {
		m.Player1ID = intPtr(winnerID)
		return 1, nil
	}
	if m.Player2ID == nil && m.Player1ID != nil && *m.Player1ID != winnerID {
		m.Player2ID = intPtr(winnerID)
		return 2, nil
	}
	return 0, nil
}

// --- dispute repository ---

type fakeDisputeRepo struct {
	mu       sync.Mutex
	seq      int
	disputes map[int]*models.Dispute
}

func newFakeDisputeRepo() *fakeDisputeRepo {
	return &fakeDisputeRepo{disputes: make(map[int]*models.Dispute)}
}

func cloneDispute(d *models.Dispute) *models.Dispute {
	c := *d
	c.Evidence = append([]string(nil), d.Evidence...)
	c.ResolvedBy = copyIntPtr(d.ResolvedBy)
	c.ResolvedAt = copyTimePtr(d.ResolvedAt)
	if d.Resolution != nil {
		resolution := *d.Resolution
		c.Resolution = &resolution
	}
	return &c
}

func (r *fakeDisputeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, d *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	d.ID = r.seq
	d.CreatedAt = time.Now()
	r.disputes[d.ID] = cloneDispute(d)
	return nil
}

func (r *fakeDisputeRepo) GetByID(ctx context.Context, id int) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	return cloneDispute(d), nil
}

func (r *fakeDisputeRepo) GetPendingByMatch(ctx context.Context, matchID int) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.MatchID == matchID && d.Status == models.DisputeStatusPending {
			return cloneDispute(d), nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (r *fakeDisputeRepo) ListByStatus(ctx context.Context, status models.DisputeStatus) ([]*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Dispute
	for _, d := range r.disputes {
		if d.Status == status {
			out = append(out, cloneDispute(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDisputeRepo) Resolve(ctx context.Context, exec repositories.SQLExecutor, id int, resolvedBy int, resolution string, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok || d.Status != models.DisputeStatusPending {
		return repositories.ErrDisputeStateConflict
	}
	d.Status = models.DisputeStatusResolved
	d.ResolvedBy = intPtr(resolvedBy)
	d.ResolvedAt = &resolvedAt
	d.Resolution = &resolution
	return nil
}

func (r *fakeDisputeRepo) AppendEvidence(ctx context.Context, exec repositories.SQLExecutor, id int, objectKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return repositories.ErrDisputeNotFound
	}
	d.Evidence = append(d.Evidence, objectKey)
	return nil
}

// --- tournament repository ---

type fakeTournamentRepo struct {
	mu          sync.Mutex
	seq         int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	if t.BracketType != nil {
		bt := *t.BracketType
		c.BracketType = &bt
	}
	c.WinnerID = copyIntPtr(t.WinnerID)
	if t.WinnerName != nil {
		name := *t.WinnerName
		c.WinnerName = &name
	}
	c.WinnerPrize = copyIntPtr(t.WinnerPrize)
	c.CompletedAt = copyTimePtr(t.CompletedAt)
	c.Players = nil
	c.Matches = nil
	return &c
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = r.seq
	t.CreatedAt = time.Now()
	r.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.tournaments {
		out = append(out, cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) MarkBracketGenerated(ctx context.Context, exec repositories.SQLExecutor, id int, bracketType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok || t.Status != models.TournamentStatusCreated {
		return repositories.ErrTournamentStateConflict
	}
	t.Status = models.TournamentStatusInProgress
	t.BracketType = &bracketType
	return nil
}

func (r *fakeTournamentRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID int, winnerName string, prize int, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok || t.Status == models.TournamentStatusCompleted {
		return repositories.ErrTournamentStateConflict
	}
	t.Status = models.TournamentStatusCompleted
	t.WinnerID = intPtr(winnerID)
	t.WinnerName = &winnerName
	t.WinnerPrize = intPtr(prize)
	t.CompletedAt = &completedAt
	return nil
}

// --- player repository ---

type fakePlayerRepo struct {
	mu      sync.Mutex
	seq     int
	players map[int]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[int]*models.Player)}
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrPlayerRegistrationConflict
		}
	}
	r.seq++
	p.ID = r.seq
	p.CreatedAt = time.Now()
	clone := *p
	r.players[p.ID] = &clone
	return nil
}

func (r *fakePlayerRepo) GetByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.TournamentID == tournamentID && p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Player
	for _, p := range r.players {
		if p.TournamentID == tournamentID {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	players, _ := r.ListByTournament(ctx, tournamentID)
	return len(players), nil
}

func (r *fakePlayerRepo) CreditWinnerStats(ctx context.Context, exec repositories.SQLExecutor, id int, earnings int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Wins++
	p.TotalEarnings += earnings
	return nil
}

// --- user repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.SelectedGames = append([]string(nil), u.SelectedGames...)
	if u.ProfileImageKey != nil {
		key := *u.ProfileImageKey
		c.ProfileImageKey = &key
	}
	return &c
}

func (r *fakeUserRepo) Create(ctx context.Context, exec repositories.SQLExecutor, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	r.seq++
	u.ID = r.seq
	u.CreatedAt = time.Now()
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateProfileImageKey(ctx context.Context, exec repositories.SQLExecutor, id int, key *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.ProfileImageKey = key
	return nil
}

func (r *fakeUserRepo) UpdateSelectedGames(ctx context.Context, exec repositories.SQLExecutor, id int, games []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.SelectedGames = append([]string(nil), games...)
	return nil
}

func (r *fakeUserRepo) CreditPrize(ctx context.Context, exec repositories.SQLExecutor, id int, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Balance += amount
	u.Wins++
	u.TotalEarnings += amount
	return nil
}

func (r *fakeUserRepo) DebitBalance(ctx context.Context, exec repositories.SQLExecutor, id int, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if u.Balance < amount {
		return repositories.ErrUserInsufficientBalance
	}
	u.Balance -= amount
	return nil
}

func (r *fakeUserRepo) IncrementTournamentsPlayed(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.TournamentsPlayed++
	return nil
}

// --- winner repository ---

type fakeWinnerRepo struct {
	mu      sync.Mutex
	seq     int
	winners []*models.Winner
}

func newFakeWinnerRepo() *fakeWinnerRepo { return &fakeWinnerRepo{} }

func (r *fakeWinnerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, w *models.Winner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	w.ID = r.seq
	clone := *w
	r.winners = append(r.winners, &clone)
	return nil
}

func (r *fakeWinnerRepo) List(ctx context.Context, game *string, limit int) ([]*models.Winner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Winner
	for _, w := range r.winners {
		if game != nil && w.Game != *game {
			continue
		}
		clone := *w
		out = append(out, &clone)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeWinnerRepo) TopByPrize(ctx context.Context, limit int) ([]*models.Winner, error) {
	out, _ := r.List(ctx, nil, limit)
	sort.Slice(out, func(i, j int) bool { return out[i].Prize > out[j].Prize })
	return out, nil
}

// --- withdrawal repository ---

type fakeWithdrawalRepo struct {
	mu          sync.Mutex
	seq         int
	withdrawals map[int]*models.Withdrawal
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{withdrawals: make(map[int]*models.Withdrawal)}
}

func cloneWithdrawal(w *models.Withdrawal) *models.Withdrawal {
	c := *w
	c.TournamentID = copyIntPtr(w.TournamentID)
	c.ProcessedAt = copyTimePtr(w.ProcessedAt)
	c.ProcessedBy = copyIntPtr(w.ProcessedBy)
	if w.TransactionID != nil {
		id := *w.TransactionID
		c.TransactionID = &id
	}
	if w.Notes != nil {
		notes := *w.Notes
		c.Notes = &notes
	}
	return &c
}

func (r *fakeWithdrawalRepo) Create(ctx context.Context, exec repositories.SQLExecutor, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	w.ID = r.seq
	if w.RequestedAt.IsZero() {
		w.RequestedAt = time.Now()
	}
	r.withdrawals[w.ID] = cloneWithdrawal(w)
	return nil
}

func (r *fakeWithdrawalRepo) GetByID(ctx context.Context, id int) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, repositories.ErrWithdrawalNotFound
	}
	return cloneWithdrawal(w), nil
}

func (r *fakeWithdrawalRepo) ListByUser(ctx context.Context, userID int) ([]*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Withdrawal
	for _, w := range r.withdrawals {
		if w.UserID == userID {
			out = append(out, cloneWithdrawal(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeWithdrawalRepo) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Withdrawal
	for _, w := range r.withdrawals {
		if w.Status == status {
			out = append(out, cloneWithdrawal(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeWithdrawalRepo) MarkProcessed(ctx context.Context, exec repositories.SQLExecutor, id int, status models.WithdrawalStatus, processedBy int, transactionID *string, notes *string, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != models.WithdrawalStatusPending {
		return repositories.ErrWithdrawalStateConflict
	}
	w.Status = status
	w.ProcessedBy = intPtr(processedBy)
	w.ProcessedAt = &processedAt
	w.TransactionID = transactionID
	w.Notes = notes
	return nil
}
