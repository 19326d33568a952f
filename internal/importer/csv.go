// Package importer is the player-pool provider: it turns a CSV list into a
// validated []models.Player ready for ingestion. Header-driven with columns
// name, role, club, value (any order, case-insensitive).
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fantadraft/asta/internal/models"
)

var requiredHeaders = []string{"name", "role", "club", "value"}

// ParsePlayerCSV reads the player pool from r. Every row must carry a known
// role and a positive integer value; the opening-bid floor is derived from
// the value, so a non-positive one is rejected here rather than later in
// the bidding path. Player ids are derived from name and row number.
func ParsePlayerCSV(r io.Reader) ([]models.Player, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		col[h] = i
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := col[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	var players []models.Player
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", row, err)
		}

		name := strings.TrimSpace(record[col["name"]])
		club := strings.TrimSpace(record[col["club"]])
		roleStr := strings.ToUpper(strings.TrimSpace(record[col["role"]]))
		valueStr := strings.TrimSpace(record[col["value"]])

		if name == "" || club == "" || roleStr == "" || valueStr == "" {
			return nil, fmt.Errorf("row %d has empty required fields", row)
		}

		role := models.PlayerRole(roleStr)
		if !role.Valid() {
			return nil, fmt.Errorf("row %d has invalid role %q", row, roleStr)
		}

		value, err := strconv.Atoi(valueStr)
		if err != nil {
			return nil, fmt.Errorf("row %d has invalid value %q", row, valueStr)
		}
		if value <= 0 {
			return nil, fmt.Errorf("row %d has non-positive value %d", row, value)
		}

		players = append(players, models.Player{
			ID:    fmt.Sprintf("%s-%d", strings.ReplaceAll(name, " ", "-"), row-2),
			Name:  name,
			Role:  role,
			Club:  club,
			Value: value,
		})
	}

	if len(players) == 0 {
		return nil, fmt.Errorf("CSV contains no players")
	}
	return players, nil
}
