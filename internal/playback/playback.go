// internal/playback/playback.go
package playback

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Controller is the narrow contract the game core emits playback cues
// through. The core decides *when* audio should start or stop; how playback
// actually happens belongs to the device integration behind this interface.
type Controller interface {
	Play(ctx context.Context, mediaURI string, startOffsetMs int) error
	Pause(ctx context.Context) error
}

// LogController is a Controller that only logs the cues. It stands in
// wherever no real playback device is wired up.
type LogController struct {
	Logger *logrus.Logger
}

func (c *LogController) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

// Play logs the play cue.
func (c *LogController) Play(ctx context.Context, mediaURI string, startOffsetMs int) error {
	c.logger().WithFields(logrus.Fields{
		"mediaUri": mediaURI,
		"offsetMs": startOffsetMs,
	}).Info("Playback cue: play")
	return nil
}

// Pause logs the pause cue.
func (c *LogController) Pause(ctx context.Context) error {
	c.logger().Info("Playback cue: pause")
	return nil
}
