package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameSource(t *testing.T) {
	tests := []struct {
		name   string
		game   Game
		want   string
		wantOK bool
	}{
		{
			name:   "extracted archive",
			game:   Game{ArchivePath: "games/pong/pong.zip", EntryPath: "games/pong/play/index.html"},
			want:   "/media/games/pong/play/index.html",
			wantOK: true,
		},
		{
			name: "archive without entry point",
			game: Game{ArchivePath: "games/pong/pong.zip"},
		},
		{
			name:   "external url",
			game:   Game{URL: "https://example.com/play"},
			want:   "https://example.com/play",
			wantOK: true,
		},
		{
			name: "nothing",
			game: Game{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.game.Source("/media/")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
