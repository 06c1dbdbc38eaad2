// Package lark delivers notifications as Lark IM messages addressed by email.
package lark

import (
	"context"
	"fmt"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string        // empty means the public Lark endpoint
	Timeout   time.Duration // per API call; zero leaves the SDK default
}

// messageCreator is the slice of the IM API the sender needs
type messageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// SDKClient holds a configured Lark SDK client. Tenant tokens are cached by the SDK.
type SDKClient struct {
	client *lark.Client
}

func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	sdkLogger := logger.Named("lark-sdk")
	opts := []lark.ClientOptionFunc{
		lark.WithLogger(zapSDKLogger{sdkLogger.Sugar()}),
		lark.WithLogLevel(sdkLevel(sdkLogger)),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.Timeout))
	}

	logger.Info("Lark client configured",
		zap.String("app_id", cfg.AppID),
		zap.Duration("timeout", cfg.Timeout))
	return &SDKClient{client: lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)}
}

func (c *SDKClient) messages() messageCreator {
	return c.client.Im.Message
}

// zapSDKLogger routes SDK diagnostics into the service log
type zapSDKLogger struct {
	s *zap.SugaredLogger
}

func (l zapSDKLogger) Debug(_ context.Context, args ...interface{}) { l.s.Debug(fmt.Sprint(args...)) }
func (l zapSDKLogger) Info(_ context.Context, args ...interface{})  { l.s.Info(fmt.Sprint(args...)) }
func (l zapSDKLogger) Warn(_ context.Context, args ...interface{})  { l.s.Warn(fmt.Sprint(args...)) }
func (l zapSDKLogger) Error(_ context.Context, args ...interface{}) { l.s.Error(fmt.Sprint(args...)) }

// sdkLevel keeps the SDK from formatting entries zap would drop
func sdkLevel(logger *zap.Logger) larkcore.LogLevel {
	if logger.Core().Enabled(zap.DebugLevel) {
		return larkcore.LogLevelDebug
	}
	return larkcore.LogLevelWarn
}
