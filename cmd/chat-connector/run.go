package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/oachat/chat-connector/internal/bot"
	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/cursor_repository"
	"github.com/oachat/chat-connector/internal/dispatch"
	"github.com/oachat/chat-connector/internal/events"
	"github.com/oachat/chat-connector/internal/management"
	"github.com/oachat/chat-connector/internal/mqtt"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/platform/utils"
	"github.com/oachat/chat-connector/internal/poller"
	"github.com/oachat/chat-connector/internal/session"
	"github.com/oachat/chat-connector/internal/sink"
	"github.com/oachat/chat-connector/internal/transport"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func buildCredentials(cfg *config.Config) session.Credentials {
	switch cfg.AuthKind {
	case "cookie":
		return session.NewCookieCredentials(cfg.AuthSesCookie, cfg.BotName)
	default:
		return session.NewPasswordCredentials(cfg.AuthEmail, cfg.AuthPassword, cfg.BotName)
	}
}

func buildCursorStore(cfg *config.Config) (cursor_repository.CursorStore, error) {
	switch cfg.CursorStoreImpl {
	case "none":
		return cursor_repository.NewNullCursorStore(), nil
	case "sql":
		return cursor_repository.NewSqlCursorStore(cfg)
	default:
		return nil, errors.New("Invalid cursor store impl requested: " + cfg.CursorStoreImpl)
	}
}

func startChatConnector(mgmtAddr string) {

	logger.InitLogger()

	logger.Log.Info("Starting Chat-Connector service")

	cfg := config.GetConfig()
	logger.Log.Info("Chat-Connector configuration:\n", cfg)

	httpTransport := transport.NewHTTPTransport(cfg)

	sessions, err := session.NewManager(transport.NewRetryingAuthenticator(httpTransport, cfg), buildCredentials(cfg), cfg.SessionTTL)
	if err != nil {
		logger.LogFatalError("Unable to build the session manager", err)
	}

	var eventSource transport.EventSource = httpTransport
	var mqttStream *mqtt.EventStream

	switch cfg.EventSourceImpl {
	case "http":
	case "mqtt":
		mqttStream, err = mqtt.NewEventStream(cfg)
		if err != nil {
			logger.LogFatalError("Unable to connect the MQTT event stream", err)
		}
		eventSource = mqttStream
	default:
		logger.Log.Fatal("Invalid event source impl requested: ", cfg.EventSourceImpl)
	}

	client := transport.NewRetryingClient(eventSource, httpTransport, httpTransport, sessions, cfg)

	cursorStore, err := buildCursorStore(cfg)
	if err != nil {
		logger.LogFatalError("Unable to build the cursor store", err)
	}

	registry := dispatch.NewRegistry()
	dispatcher := dispatch.NewDispatcher(registry)
	window := events.NewWindow(cfg.DedupWindowCapacity, cfg.DedupWindowTTL)

	var kafkaSink *sink.KafkaEventSink
	if cfg.KafkaEventSinkEnabled {
		kafkaSink, err = sink.NewKafkaEventSink(cfg)
		if err != nil {
			logger.LogFatalError("Unable to start the kafka event sink", err)
		}
		registry.Register(dispatch.GlobalFilter(), kafkaSink.HandleEvent)
	}

	registry.Register(dispatch.GlobalFilter(), func(ctx context.Context, event events.Event) error {
		logger.Log.WithFields(logrus.Fields{
			"event_id":    event.ID,
			"category":    event.Category,
			"subcategory": event.Subcategory,
		}).Debug("Received event")
		return nil
	})

	pollLoop := poller.NewEventPoller(sessions, client, dispatcher, window, cursorStore, httpTransport, cfg)

	chatBot := bot.NewBot(registry, pollLoop, client, cfg)

	apiMux := mux.NewRouter()

	monitoringServer := management.NewMonitoringServer(apiMux, cfg)
	monitoringServer.Routes()

	apiSrv := utils.StartHTTPServer(mgmtAddr, "management", apiMux)

	runErrChan := make(chan error, 1)
	go func() {
		runErrChan <- chatBot.Run(context.Background())
	}()

	signalChan := make(chan os.Signal, 1)

	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error

	select {
	case sig := <-signalChan:
		logger.Log.Info("Received signal to shutdown: ", sig)
		chatBot.Stop()
		runErr = <-runErrChan
	case runErr = <-runErrChan:
	}

	if runErr != nil {
		logger.LogError("Poll loop terminated", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HttpShutdownTimeout)
	defer cancel()

	utils.ShutdownHTTPServer(ctx, "management", apiSrv)

	if mqttStream != nil {
		mqttStream.Close()
	}

	if kafkaSink != nil {
		kafkaSink.Close()
	}

	logger.Log.Info("Chat-Connector shutting down")

	if runErr != nil {
		os.Exit(1)
	}
}
