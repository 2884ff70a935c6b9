package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"arena/internal/config"
	"arena/internal/logging"
	"arena/internal/matcher"
	"arena/internal/services"
	"arena/internal/session"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// workspace is the matched state every review command starts from.
type workspace struct {
	cfg     *config.Config
	session *session.Session
	opts    matcher.Options
	matcher *matcher.Matcher
	logger  *slog.Logger
}

func (c *commandContext) openWorkspace() (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	sess, err := session.New(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "build session", "invalid session configuration", err)
	}
	logger = logger.With(logging.String(logging.FieldSessionID, sess.ID))

	opts := matcherOptions(cfg)
	m := matcher.New(sess.Variants, opts)
	for _, v := range cfg.Session.Variants {
		var names []string
		if strings.TrimSpace(v.Dir) != "" {
			discovered, err := matcher.Discover(v.Dir, sess.Kind)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "matcher", "discover", fmt.Sprintf("variant %s directory %s", v.ID, v.Dir), err)
			}
			names = discovered
		}
		extra := matcher.Filter(v.Files, sess.Kind)
		if skipped := len(v.Files) - len(extra); skipped > 0 {
			logging.WarnWithContext(logger, "variant files skipped", "matcher_kind_mismatch",
				logging.String(logging.FieldVariant, v.ID),
				logging.Int("skipped", skipped),
				logging.String(logging.FieldErrorHint, fmt.Sprintf("only %s files are matched in this session", sess.Kind)),
			)
		}
		m.Set(v.ID, append(names, extra...))
	}
	ws := &workspace{
		cfg:     cfg,
		session: sess,
		opts:    opts,
		matcher: m,
		logger:  logger,
	}
	logger.Debug("cases matched",
		logging.Int("cases", len(ws.cases())),
		logging.Int("variants", len(sess.Variants)),
		logging.String("media_kind", string(sess.Kind)),
	)
	return ws, nil
}

func (w *workspace) files() matcher.Files {
	return w.matcher.Files()
}

func (w *workspace) cases() []session.TestCase {
	return w.matcher.Cases()
}

func (w *workspace) ready() bool {
	return w.matcher.Ready()
}

func (w *workspace) findCase(name string) (session.TestCase, error) {
	name = strings.TrimSpace(name)
	cases := w.cases()
	for _, tc := range cases {
		if tc.ID == name || tc.Name == name {
			return tc, nil
		}
	}
	key := w.opts.Key(name)
	for _, tc := range cases {
		if tc.ID == key {
			return tc, nil
		}
	}
	return session.TestCase{}, services.Wrap(services.ErrNotFound, "matcher", "find case", fmt.Sprintf("no matched case named %q", name), nil)
}

func matcherOptions(cfg *config.Config) matcher.Options {
	return matcher.Options{
		Duplicates: matcher.DuplicatePolicy(cfg.Matching.DuplicatePolicy),
		Normalize:  cfg.Matching.UnicodeNormalize,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
