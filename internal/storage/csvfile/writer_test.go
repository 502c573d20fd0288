package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

func TestRecordWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "manager_stats.csv")
	w, err := NewRecordWriter(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.WriteRecord(ctx, crawler.MatchupRecord{
		ID: "118", Name: "Jürgen Klopp", TargetID: "5672", TargetName: "Pep Guardiola",
		Matches: 14, Wins: 4, Draws: 0, Losses: 10,
	}))
	require.NoError(t, w.WriteRecord(ctx, crawler.MatchupRecord{
		ID: "118", Name: "Jürgen Klopp", TargetID: "9", TargetName: "O'Neill, Martin",
		Matches: 2, Wins: 2,
	}))
	require.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"id,name,targetId,targetName,matches,wins,draws,losses\n"+
			"118,Jürgen Klopp,5672,Pep Guardiola,14,4,0,10\n"+
			"118,Jürgen Klopp,9,\"O'Neill, Martin\",2,2,0,0\n",
		string(data))
	require.Equal(t, path, w.Path())
}

func TestManagerWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "managers.csv")
	w, err := NewManagerWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteManager(context.Background(), crawler.ManagerRow{
		Season: 2004, Manager: "Arsène Wenger", Identifier: "4", Club: "Arsenal FC",
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "season,manager,identifier,club\n2004,Arsène Wenger,4,Arsenal FC\n", string(data))
}

func TestWriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := NewManagerWriter(filepath.Join(t.TempDir(), "managers.csv"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.WriteManager(context.Background(), crawler.ManagerRow{Season: 2000})
	require.ErrorContains(t, err, "closed")
}
