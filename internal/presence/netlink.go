package presence

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"scanstation/internal/logging"
)

// attrKeys are the udev properties copied onto requests for logging and history.
var attrKeys = []string{"SUBSYSTEM", "DEVNAME", "ID_VENDOR_ID", "ID_MODEL_ID", "ID_MODEL", "ID_SERIAL"}

// NetlinkConfig selects which udev events count as presence changes.
type NetlinkConfig struct {
	Subsystem string
	MatchEnv  map[string]string
	HandleKey string
}

// NetlinkSource listens for udev add/remove events and forwards them to a
// sink as scan-zone enter/exit.
type NetlinkSource struct {
	cfg    NetlinkConfig
	sink   Sink
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewNetlinkSource returns nil when there is nothing to deliver events to.
func NewNetlinkSource(cfg NetlinkConfig, sink Sink, logger *slog.Logger) *NetlinkSource {
	if sink == nil {
		return nil
	}
	if strings.TrimSpace(cfg.HandleKey) == "" {
		cfg.HandleKey = "DEVPATH"
	}
	return &NetlinkSource{
		cfg:    cfg,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "netlink-presence"),
		now:    time.Now,
	}
}

// Start connects to the kernel uevent socket. A failed connect is logged and
// swallowed: manual enter/exit keeps working without it.
func (s *NetlinkSource) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(s.logger, "netlink connect failed; presence limited to manual triggers", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the daemon with permission to open netlink sockets"),
			logging.String(logging.FieldImpact, "devices will not enter or leave the station automatically"),
		)
		return nil
	}

	s.conn = conn
	s.quit = make(chan struct{})
	s.running = true

	quit := s.quit
	go s.monitorLoop(ctx, conn, quit)

	s.logger.Info("netlink presence started",
		logging.EventType("netlink_presence_started"),
		logging.String("subsystem", s.cfg.Subsystem),
		logging.String("handle_key", s.cfg.HandleKey),
	)
	return nil
}

// Stop closes the uevent socket.
func (s *NetlinkSource) Stop() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.running = false

	s.logger.Info("netlink presence stopped",
		logging.EventType("netlink_presence_stopped"),
	)
}

// Running reports whether the source is connected.
func (s *NetlinkSource) Running() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *NetlinkSource) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, s.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			s.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(s.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "some presence changes may be missed"),
			)
		}
	}
}

// buildMatcher accepts add/remove events for the configured subsystem and
// udev properties. Values match exactly.
func (s *NetlinkSource) buildMatcher() netlink.Matcher {
	action := "^(add|remove)$"
	env := make(map[string]string, len(s.cfg.MatchEnv)+1)
	if sub := strings.TrimSpace(s.cfg.Subsystem); sub != "" {
		env["SUBSYSTEM"] = exact(sub)
	}
	for key, value := range s.cfg.MatchEnv {
		env[key] = exact(value)
	}
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    env,
	})
	return rules
}

func exact(value string) string {
	return "^" + regexp.QuoteMeta(value) + "$"
}

func (s *NetlinkSource) handleEvent(uevent netlink.UEvent) {
	evt, ok := s.translate(uevent)
	if !ok {
		s.logger.Debug("ignoring uevent",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	s.logger.Debug("presence change from netlink",
		logging.String(logging.FieldEventType, "netlink_presence_"+evt.Kind.String()),
		logging.RequestID(evt.Handle),
	)
	if err := Dispatch(s.sink, evt); err != nil {
		logging.WarnWithContext(s.logger, "netlink presence dispatch failed", "netlink_dispatch_failed",
			logging.Error(err),
			logging.RequestID(evt.Handle),
		)
	}
}

// translate maps a uevent onto a scan-zone presence event.
func (s *NetlinkSource) translate(uevent netlink.UEvent) (Event, bool) {
	var kind Kind
	switch uevent.Action {
	case netlink.ADD:
		kind = KindEnter
	case netlink.REMOVE:
		kind = KindExit
	default:
		return Event{}, false
	}

	handle := strings.TrimSpace(uevent.Env[s.cfg.HandleKey])
	if handle == "" {
		handle = strings.TrimSpace(uevent.KObj)
	}
	if handle == "" {
		return Event{}, false
	}

	var attrs map[string]string
	if kind == KindEnter {
		for _, key := range attrKeys {
			if value := uevent.Env[key]; value != "" {
				if attrs == nil {
					attrs = make(map[string]string, len(attrKeys))
				}
				attrs[strings.ToLower(key)] = value
			}
		}
	}
	return Event{Kind: kind, Zone: ZoneScan, Handle: handle, Attrs: attrs, At: s.now()}, true
}
