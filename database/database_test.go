package database

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createTableRe = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)

// sqlColumns возвращает колонки каждой таблицы из SQL-миграции
func sqlColumns(t *testing.T, path string) map[string][]string {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	tables := make(map[string][]string)
	for _, match := range createTableRe.FindAllStringSubmatch(string(raw), -1) {
		for _, line := range strings.Split(match[2], "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			tables[match[1]] = append(tables[match[1]], fields[0])
		}
	}
	return tables
}

// Схема моделей gorm и схема postgres-миграций должны совпадать по именам колонок
func TestAutoMigrate_ColumnsMatchMigrations(t *testing.T) {
	db := newTestDatabase(t)

	tables := sqlColumns(t, "../migrations/000001_init_schema.up.sql")
	require.Len(t, tables, 8)

	for table, want := range tables {
		columnTypes, err := db.DB.Migrator().ColumnTypes(table)
		require.NoError(t, err, table)

		got := make([]string, 0, len(columnTypes))
		for _, column := range columnTypes {
			got = append(got, column.Name())
		}
		assert.ElementsMatch(t, want, got, "таблица %s", table)
	}
}

func TestAutoMigrate_ProfileHMACColumn(t *testing.T) {
	db := newTestDatabase(t)

	assert.True(t, db.DB.Migrator().HasColumn("user_profiles", "pan_hmac"))
	assert.True(t, db.DB.Migrator().HasColumn("user_profiles", "pan_encrypted"))
	assert.False(t, db.DB.Migrator().HasColumn("user_profiles", "panhmac"))
}
