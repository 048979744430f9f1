package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// playerStatus is the slice of the relayed player state the CLI renders.
type playerStatus struct {
	IsPlaying bool `json:"is_playing"`
	Device    struct {
		Name          string `json:"name"`
		VolumePercent int    `json:"volume_percent"`
	} `json:"device"`
	Item struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
	} `json:"item"`
}

// PlaybackStatus fetches and renders the current player state.
func (r *Runner) PlaybackStatus(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Get(ctx, "/status")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.Ok() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, true)
	}

	var status playerStatus
	if err := decodeJSON(resp, &status); err != nil {
		return err
	}

	r.writePlain("%s\n", r.palette.Title("Playback"))

	if status.Item.Name == "" {
		r.writePlain("%s\n", r.palette.Warn("Nothing playing"))
		return nil
	}

	state := r.palette.OK("▶ Playing")
	if !status.IsPlaying {
		state = r.palette.Warn("⏸ Paused")
	}

	artists := make([]string, 0, len(status.Item.Artists))
	for _, a := range status.Item.Artists {
		artists = append(artists, a.Name)
	}

	r.writePlain("%s  %s - %s\n", state, status.Item.Name, strings.Join(artists, ", "))
	if status.Item.Album.Name != "" {
		r.writePlain("%s\n", r.palette.Help("Album: "+status.Item.Album.Name))
	}
	if status.Device.Name != "" {
		r.writePlain("%s\n", r.palette.Help(fmt.Sprintf("Device: %s (volume %d%%)", status.Device.Name, status.Device.VolumePercent)))
	}

	return nil
}

// PlaybackPlay resumes playback through the bridge.
func (r *Runner) PlaybackPlay(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, "/play", "Playback resumed")
}

// PlaybackPause pauses playback through the bridge.
func (r *Runner) PlaybackPause(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, "/pause", "Playback paused")
}

// PlaybackNext skips to the next track.
func (r *Runner) PlaybackNext(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, "/next", "Skipped to next track")
}

// PlaybackPrevious skips to the previous track.
func (r *Runner) PlaybackPrevious(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, "/previous", "Skipped to previous track")
}

// PlaybackVolume sets the playback volume.
func (r *Runner) PlaybackVolume(ctx context.Context, cmd *cli.Command) error {
	level := cmd.IntArg("level")

	body := fmt.Sprintf(`{"volume": %d}`, level)
	resp, err := r.api.Post(ctx, "/volume", []byte(body))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.Ok() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("Volume set to %d", level)))
	return nil
}

// control posts to a bodyless command route and prints a confirmation.
func (r *Runner) control(ctx context.Context, path, message string) error {
	resp, err := r.api.Post(ctx, path, []byte("{}"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.Ok() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	r.writePlain("%s\n", r.palette.OK(message))
	return nil
}
