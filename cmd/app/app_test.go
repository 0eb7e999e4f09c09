package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-sync/internal/config"
	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
	"github.com/BuzzLyutic/task-sync/internal/service"
)

func TestOpenBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "memory", cfg: config.Config{StoreDriver: config.DriverMemory}},
		{name: "sqlite", cfg: config.Config{StoreDriver: config.DriverSQLite, SQLitePath: ":memory:"}},
		{name: "unknown", cfg: config.Config{StoreDriver: "mongo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := openBackend(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, backend.Close())
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("remote", "", "")
	cmd.Flags().String("store", "", "")
	cmd.Flags().String("sqlite-path", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().Bool("no-pull", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--store", "memory", "--no-pull"}))

	cfg := config.Config{StoreDriver: config.DriverSQLite, RemoteBaseURL: "http://a/tasks", PullOnStart: true}
	applyFlags(cmd, &cfg)

	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "http://a/tasks", cfg.RemoteBaseURL)
	assert.False(t, cfg.PullOnStart)
}

func TestDraftFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("notes", "", "")
	cmd.Flags().String("priority", "", "")

	notes := "old"
	base := service.Draft{Name: "n", Notes: &notes, Priority: model.PriorityLow}

	require.NoError(t, cmd.Flags().Parse([]string{"--notes", "", "--priority", "HIGH"}))
	d, err := draftFromFlags(cmd, base)
	require.NoError(t, err)
	assert.Nil(t, d.Notes, "empty notes clear them")
	assert.Equal(t, model.PriorityHigh, d.Priority)

	bad := &cobra.Command{Use: "y"}
	bad.Flags().String("notes", "", "")
	bad.Flags().String("priority", "", "")
	require.NoError(t, bad.Flags().Parse([]string{"--priority", "urgent"}))
	_, err = draftFromFlags(bad, base)
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	task := &model.Task{ID: 7, Name: "Buy milk", Priority: model.PriorityNormal}

	tests := []struct {
		name       string
		err        error
		wantErr    bool
		wantStdout string
		wantStderr string
	}{
		{name: "synced", wantStdout: "synced"},
		{name: "validation", err: errs.Validation("service.validate", "name is required"), wantErr: true},
		{name: "local save failed", err: errs.E(errs.ErrPersistence, "repo.save", errors.New("disk full")), wantStderr: "not saved"},
		{name: "network", err: errs.E(errs.ErrNetwork, "remote.put", errors.New("offline")), wantErr: true, wantStdout: "saved locally only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			cmd := &cobra.Command{Use: "x"}
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)

			err := (&app{}).outcome(cmd, task, tt.err)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}
