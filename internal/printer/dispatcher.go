package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/labstack/gommon/log"
)

// 印刷先1つ。失敗したら次にフォールバックする。
type target interface {
	Name() string
	Print(ctx context.Context, t Ticket) error
}

// Dispatcherは伝票をベストエフォートで印刷する。
// リモートエージェント → ローカルスプール → ESC/POS直結 → ログ の順に試し、
// 注文パイプラインへは失敗を返さない。
type Dispatcher struct {
	targets []target
	logger  *log.Logger
}

type Options struct {
	RemoteURL   string // 空なら無効
	PrinterAddr string // 空なら無効（host:9100）
	SpoolCmd    string // 空なら"lp"
}

func NewDispatcher(opts Options) *Dispatcher {
	logger := log.New("printer")

	var targets []target
	if opts.RemoteURL != "" {
		targets = append(targets, &remoteTarget{
			url:    opts.RemoteURL,
			client: &http.Client{Timeout: 3 * time.Second},
		})
	}
	spoolCmd := opts.SpoolCmd
	if spoolCmd == "" {
		spoolCmd = "lp"
	}
	targets = append(targets, &spoolTarget{cmd: spoolCmd})
	if opts.PrinterAddr != "" {
		targets = append(targets, &escposTarget{addr: opts.PrinterAddr})
	}
	targets = append(targets, &logTarget{logger: logger})

	return &Dispatcher{targets: targets, logger: logger}
}

// Printは成功でtrue。最後のログ出力まで落ちたときだけfalse。
func (d *Dispatcher) Print(ctx context.Context, t Ticket) bool {
	for _, tg := range d.targets {
		err := tg.Print(ctx, t)
		if err == nil {
			return true
		}
		d.logger.Warnf("print via %s failed (order %s): %v", tg.Name(), t.OrderNo, err)
	}

	d.logger.Errorf("all print targets failed for order %s", t.OrderNo)
	return false
}

// ---- リモート印刷エージェント ----

type remoteTarget struct {
	url    string
	client *http.Client
}

func (r *remoteTarget) Name() string { return "remote" }

type remotePrintResponse struct {
	Success bool `json:"success"`
}

func (r *remoteTarget) Print(ctx context.Context, t Ticket) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/print", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("print server returned %d", res.StatusCode)
	}

	var out remotePrintResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("print server reported failure")
	}
	return nil
}

// 印刷エージェントの死活確認（起動時ログ用）
func (r *remoteTarget) status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url+"/status", nil)
	if err != nil {
		return err
	}
	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return nil
}

// CheckRemoteはリモートエージェントの到達性を返す。未設定ならfalse。
func (d *Dispatcher) CheckRemote(ctx context.Context) bool {
	for _, tg := range d.targets {
		if r, ok := tg.(*remoteTarget); ok {
			if err := r.status(ctx); err != nil {
				d.logger.Warnf("print server unreachable: %v", err)
				return false
			}
			return true
		}
	}
	return false
}

// ---- OSのプリントスプール ----

type spoolTarget struct {
	cmd string
}

func (s *spoolTarget) Name() string { return "spool" }

func (s *spoolTarget) Print(ctx context.Context, t Ticket) error {
	cmd := exec.CommandContext(ctx, s.cmd)
	cmd.Stdin = bytes.NewBufferString(t.Render())
	return cmd.Run()
}

// ---- ESC/POS（ネットワーク直結） ----

type escposTarget struct {
	addr string
}

func (e *escposTarget) Name() string { return "escpos" }

var (
	escposInit = []byte{0x1b, 0x40}             // ESC @
	escposCut  = []byte{0x1d, 0x56, 0x42, 0x00} // GS V B 0
)

func (e *escposTarget) Print(ctx context.Context, t Ticket) error {
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", e.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(3 * time.Second))

	var buf bytes.Buffer
	buf.Write(escposInit)
	buf.WriteString(t.Render())
	buf.WriteString("\n\n")
	buf.Write(escposCut)

	_, err = conn.Write(buf.Bytes())
	return err
}

// ---- 最終フォールバック：ログに伝票を残す ----

type logTarget struct {
	logger *log.Logger
}

func (l *logTarget) Name() string { return "log" }

func (l *logTarget) Print(ctx context.Context, t Ticket) error {
	l.logger.Infof("ticket fallback:\n%s", t.Render())
	return nil
}
