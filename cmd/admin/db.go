package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type matchRow struct {
	MatchID    string `json:"match_id"`
	Player     string `json:"player"`
	Outcome    string `json:"outcome"`
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	Lives      int    `json:"lives"`
	TotalSteps int    `json:"total_steps"`
	Ticks      int64  `json:"ticks"`
	Seed       int64  `json:"seed"`
	StartedAt  int64  `json:"started_at_ms"`
	EndedAt    int64  `json:"ended_at_ms"`
}

type tickRow struct {
	Tick   int64  `json:"tick"`
	Key    string `json:"key"`
	Level  int    `json:"level"`
	Step   int    `json:"step"`
	Score  int    `json:"score"`
	Lives  int    `json:"lives"`
	State  string `json:"state"`
	Digest string `json:"digest"`
}

type snapshotRow struct {
	MatchID string `json:"match_id"`
	Tick    int64  `json:"tick"`
	Path    string `json:"path"`
	State   string `json:"state"`
	Level   int    `json:"level"`
	Score   int    `json:"score"`
	Enemies int    `json:"enemies"`
	Rocks   int    `json:"rocks"`
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/index.db)")
	matchID := fs.String("match", "", "match id (required for ticks; optional filter for snapshots)")
	order := fs.String("order", "recent", "matches order: recent|score")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "matches"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "index.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "matches":
		rows, err := queryMatches(db, *order, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "ticks":
		if strings.TrimSpace(*matchID) == "" {
			fmt.Fprintln(os.Stderr, "missing -match")
			os.Exit(2)
		}
		rows, err := queryTicks(db, *matchID, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "snapshots":
		rows, err := querySnapshots(db, *matchID, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want matches|ticks|snapshots)")
		os.Exit(2)
	}
}

func queryMatches(db *sql.DB, order string, limit int) ([]matchRow, error) {
	orderBy := "ended_at_ms DESC"
	if order == "score" {
		orderBy = "score DESC, ended_at_ms ASC"
	}
	rows, err := db.Query(`SELECT match_id,player,outcome,level,score,lives,total_steps,ticks,seed,started_at_ms,ended_at_ms FROM matches ORDER BY `+orderBy+` LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []matchRow
	for rows.Next() {
		var r matchRow
		if err := rows.Scan(&r.MatchID, &r.Player, &r.Outcome, &r.Level, &r.Score, &r.Lives, &r.TotalSteps, &r.Ticks, &r.Seed, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// queryTicks returns the last limit ticks of a match in tick order.
func queryTicks(db *sql.DB, matchID string, limit int) ([]tickRow, error) {
	rows, err := db.Query(`SELECT tick,key,level,step,score,lives,state,digest FROM (
		SELECT * FROM ticks WHERE match_id=? ORDER BY tick DESC LIMIT ?
	) ORDER BY tick ASC`, matchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []tickRow
	for rows.Next() {
		var r tickRow
		if err := rows.Scan(&r.Tick, &r.Key, &r.Level, &r.Step, &r.Score, &r.Lives, &r.State, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func querySnapshots(db *sql.DB, matchID string, limit int) ([]snapshotRow, error) {
	query := `SELECT match_id,tick,path,state,level,score,enemies,rocks FROM snapshots`
	args := []any{}
	if matchID != "" {
		query += ` WHERE match_id=?`
		args = append(args, matchID)
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []snapshotRow
	for rows.Next() {
		var r snapshotRow
		if err := rows.Scan(&r.MatchID, &r.Tick, &r.Path, &r.State, &r.Level, &r.Score, &r.Enemies, &r.Rocks); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
