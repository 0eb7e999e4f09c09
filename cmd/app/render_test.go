package main

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/BuzzLyutic/task-sync/internal/model"
)

func TestRenderTasks(t *testing.T) {
	id := uuid.MustParse("6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f")
	notes := "2% fat"
	tasks := []*model.Task{
		{ID: 1, Name: "Buy milk", Notes: &notes, Priority: model.PriorityHigh, Identifier: &id},
		{ID: 2, Name: "Call mom", Priority: model.PriorityNormal},
	}

	out := renderTasks(tasks)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Buy milk")
	assert.Contains(t, lines[1], "6F1C2D3E")
	assert.Contains(t, lines[1], "2% fat")
	assert.Contains(t, lines[2], "local")
}

func TestRenderTasks_Empty(t *testing.T) {
	assert.Contains(t, renderTasks(nil), "no tasks")
}
