// dbcheck is a standalone read-only inspector for promptlib database files.
// It uses the cgo-free driver so it builds anywhere a library file might need
// to be examined.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Printf("Error resolving home dir: %v\n", err)
			os.Exit(1)
		}
		dbPath := filepath.Join(home, ".promptlib", "prompt-library.db")
		if _, err := os.Stat(dbPath); err != nil {
			fmt.Printf("Usage: dbcheck <path-to-db> [limit]\nNo database at default location %s\n", dbPath)
			os.Exit(1)
		}
		inspect(dbPath, 10)
		return
	}

	dbPath := os.Args[1]
	limit := 10
	if len(os.Args) > 2 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			limit = n
		}
	}
	inspect(dbPath, limit)
}

func inspect(dbPath string, limit int) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		fmt.Printf("Error opening DB: %v\n", err)
		return
	}
	defer db.Close()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		fmt.Printf("Error querying tables: %v\n", err)
		return
	}

	var tables []string
	for rows.Next() {
		var name string
		rows.Scan(&name)
		tables = append(tables, name)
	}
	rows.Close()
	fmt.Printf("Tables: %v\n", tables)

	for _, table := range []string{"prompts", "prompt_versions", "usage_logs"} {
		printSchema(db, table)
	}

	fmt.Println("\nRecent prompts:")
	fmt.Println("─────────────────────────────────────────────────────────────")
	promptRows, err := db.Query(
		"SELECT id, title, tags, score_avg, score_count, updated_at FROM prompts ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		fmt.Printf("Error querying prompts: %v\n", err)
		return
	}
	defer promptRows.Close()

	for promptRows.Next() {
		var id, scoreCount int64
		var title, tags, updatedAt string
		var scoreAvg float64
		if err := promptRows.Scan(&id, &title, &tags, &scoreAvg, &scoreCount, &updatedAt); err != nil {
			fmt.Printf("Scan error: %v\n", err)
			continue
		}
		if len(title) > 60 {
			title = title[:60] + "..."
		}
		fmt.Printf("%d. %s  tags=%s  score=%.2f(%d)  updated=%s\n", id, title, tags, scoreAvg, scoreCount, updatedAt)
	}

	var prompts, versions, logs int
	db.QueryRow("SELECT COUNT(*) FROM prompts").Scan(&prompts)
	db.QueryRow("SELECT COUNT(*) FROM prompt_versions").Scan(&versions)
	db.QueryRow("SELECT COUNT(*) FROM usage_logs").Scan(&logs)
	fmt.Printf("\nTotals: %d prompts, %d versions, %d usage logs\n", prompts, versions, logs)
}

func printSchema(db *sql.DB, table string) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		fmt.Printf("No %s table\n", table)
		return
	}
	defer rows.Close()

	fmt.Printf("\n%s:\n", table)
	for rows.Next() {
		var cid, notNull, pk int
		var name, typ string
		var dflt interface{}
		rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk)
		fmt.Printf("  - %s (%s)\n", name, typ)
	}
}
