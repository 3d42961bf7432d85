package bootstrap

import (
	"meetscribe/internal/api"
	"meetscribe/internal/capture"
	"meetscribe/internal/config"
	"meetscribe/internal/domain"
	"meetscribe/internal/ports"
	"meetscribe/internal/relay"
	"meetscribe/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	API        *api.Client
	Config     config.Config
}

// Build wires all client dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout)

	controller := usecase.NewSessionController(
		capture.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		relay.NewRelay(relay.Config{
			SocketURL: cfg.Server.SocketURL,
			QueueSize: cfg.Relay.QueueSize,
		}),
		client,
		client,
		eventSink,
		usecase.Config{
			Microphone: ports.CaptureConfig{
				Source:      domain.AudioSourceMicrophone,
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.MicrophoneDevice,
			},
			Screen: ports.CaptureConfig{
				Source:      domain.AudioSourceScreen,
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.ScreenMonitorDevice,
			},
			MicChunkInterval:    cfg.Audio.MicChunkInterval,
			ScreenChunkInterval: cfg.Audio.ScreenChunkInterval,
		},
	)

	return Services{Controller: controller, API: client, Config: cfg}, nil
}
