package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrateCreatesCrossCheckTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, PingDatabase(db)(context.Background()))
	for _, table := range []string{"students", "course_tasks", "task_solutions", "task_solution_checkers", "task_solution_results", "task_results", "activity_logs"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	require.NoError(t, PingRedis(client)(context.Background()))

	mini.Close()
	require.Error(t, PingRedis(client)(context.Background()))
	require.NoError(t, client.Close())

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)
}

func TestConnectersRejectEmptyTargets(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)

	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}
