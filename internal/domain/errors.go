package domain

import "errors"

// ErrNoAudioTrack reports a screen capture request with no audio track
// available to record.
var ErrNoAudioTrack = errors.New("screen source has no audio track")

// ErrPermissionDenied reports a rejected capture permission request.
var ErrPermissionDenied = errors.New("audio capture permission denied")
