package stats

import (
	"context"
	"fmt"
	"math"

	"SongBracket/api/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const (
	SortTournamentWins = "tournament_wins"
	SortPickRate       = "pick_rate"

	DefaultLimit = 50
	MaxLimit     = 200
)

const pickRateExpr = "CASE WHEN picks = 0 THEN 0 ELSE wins * 100.0 / picks END AS pick_rate"

// SongStat is one leaderboard row.
type SongStat struct {
	ID             string  `db:"id" json:"id"`
	Title          string  `db:"title" json:"title"`
	OriginalSong   string  `db:"original_song" json:"original_song"`
	Picks          int64   `db:"picks" json:"picks"`
	Wins           int64   `db:"wins" json:"wins"`
	Losses         int64   `db:"losses" json:"losses"`
	TournamentWins int64   `db:"tournament_wins" json:"tournament_wins"`
	PickRate       float64 `db:"pick_rate" json:"pick_rate"`
	WinRate        float64 `db:"-" json:"win_rate"`
}

type Query struct {
	Sort   string
	Limit  int
	Offset int
}

type Page struct {
	Songs                []SongStat `json:"songs"`
	Total                int64      `json:"total"`
	CompletedTournaments int64      `json:"completed_tournaments"`
}

// Leaderboard is the read model over song counters. It reads the same
// tables the engine writes, through sqlx instead of gorm.
type Leaderboard struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewLeaderboard(db *sqlx.DB) *Leaderboard {
	format := sq.PlaceholderFormat(sq.Question)
	if sqlx.BindType(db.DriverName()) == sqlx.DOLLAR {
		format = sq.Dollar
	}
	return &Leaderboard{db: db, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

// FromGorm shares the gorm connection pool.
func FromGorm(gdb *gorm.DB) (*Leaderboard, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	driver := "sqlite3"
	if gdb.Dialector.Name() == "postgres" {
		driver = "pgx"
	}
	return NewLeaderboard(sqlx.NewDb(sqlDB, driver)), nil
}

func (q Query) normalized() Query {
	if q.Sort != SortPickRate {
		q.Sort = SortTournamentWins
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Songs returns one page of rows. Win rates are left at zero; see
// ApplyWinRates.
func (l *Leaderboard) Songs(ctx context.Context, q Query) ([]SongStat, int64, error) {
	q = q.normalized()

	sel := l.sb.
		Select("id", "title", "original_song", "picks", "wins", "losses", "tournament_wins", pickRateExpr).
		From("songs")
	switch q.Sort {
	case SortPickRate:
		sel = sel.OrderBy("pick_rate DESC", "picks DESC", "title ASC")
	default:
		sel = sel.OrderBy("tournament_wins DESC", "wins DESC", "title ASC")
	}
	query, args, err := sel.Limit(uint64(q.Limit)).Offset(uint64(q.Offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build leaderboard query: %w", err)
	}

	rows := []SongStat{}
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := l.sb.Select("COUNT(*)").From("songs").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := l.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CompletedTournaments counts sessions that produced a champion.
func (l *Leaderboard) CompletedTournaments(ctx context.Context) (int64, error) {
	query, args, err := l.sb.Select("COUNT(*)").
		From("voting_sessions").
		Where(sq.Eq{"status": models.SessionCompleted}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = l.db.GetContext(ctx, &count, query, args...)
	return count, err
}

// ApplyWinRates fills WinRate as the share of completed tournaments each
// song won, in percent.
func ApplyWinRates(rows []SongStat, completed int64) {
	for i := range rows {
		rows[i].PickRate = round1(rows[i].PickRate)
		if completed > 0 {
			rows[i].WinRate = round1(float64(rows[i].TournamentWins) * 100 / float64(completed))
		}
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
