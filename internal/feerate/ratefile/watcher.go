package ratefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNoRateFile = errors.New("rate_file_not_configured")

// Publisher is the part of the rate service the watcher needs.
type Publisher interface {
	Publish(ctx context.Context, req domain.PublishRequest) (*domain.Snapshot, bool, error)
}

// Load reads and validates a YAML rate file.
func Load(path string) (domain.RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RateTable{}, err
	}
	return domain.DecodeYAML(data)
}

// Watcher publishes a new rate version whenever the configured file
// changes. Invalid edits are logged and ignored; the previous version stays
// current.
type Watcher struct {
	v         *viper.Viper
	path      string
	publisher Publisher
	log       *zap.Logger
}

func NewWatcher(cfg config.Config, publisher Publisher, log *zap.Logger) (*Watcher, error) {
	path := strings.TrimSpace(cfg.Rates.File)
	if path == "" {
		return nil, ErrNoRateFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return &Watcher{
		v:         v,
		path:      v.ConfigFileUsed(),
		publisher: publisher,
		log:       log.Named("feerate.watcher"),
	}, nil
}

// Sync publishes the file's current contents.
func (w *Watcher) Sync(ctx context.Context) (*domain.Snapshot, error) {
	table, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	snap, created, err := w.publisher.Publish(ctx, domain.PublishRequest{
		Table:     table,
		Source:    domain.SourceFile,
		Note:      filepath.Base(w.path),
		CreatedBy: "ratefile",
	})
	if err != nil {
		return nil, err
	}
	if created {
		w.log.Info("rate file published", zap.String("path", w.path), zap.Int64("version", snap.Version))
	}
	return snap, nil
}

func (w *Watcher) Watch() {
	w.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if _, err := w.Sync(context.Background()); err != nil {
			w.log.Warn("rate file reload ignored", zap.String("path", e.Name), zap.Error(err))
		}
	})
	w.v.WatchConfig()
}

// Register syncs the file on start and keeps watching it for the life of
// the app. It is a no-op when no rate file is configured.
func Register(lc fx.Lifecycle, cfg config.Config, publisher Publisher, log *zap.Logger) error {
	w, err := NewWatcher(cfg, publisher, log)
	if errors.Is(err, ErrNoRateFile) {
		return nil
	}
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := w.Sync(ctx); err != nil {
				return err
			}
			w.Watch()
			return nil
		},
	})
	return nil
}
