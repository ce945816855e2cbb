package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/moyoez/fileserver-admin/api"
	"github.com/moyoez/fileserver-admin/notify"
	"github.com/moyoez/fileserver-admin/panel"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
	"github.com/moyoez/fileserver-admin/view"
)

const usage = `usage: fsadmin [flags] <command> [args]

commands:
  login [username]     log in and save the session
  logout               forget the saved session
  status               show session and server status
  ls [term]            list files (-useFolder filters), optionally filtered by name
  upload <path>...     upload files one by one (-useFolder sets the target folder)
  rm <fileId>          delete a file after confirmation (-yes skips it)
  get <fileId>         download a file (-useDownloadDir sets the target directory)
  view <fileId|url>    print the file link and its QR code
  info <fileId>        show file metadata
  search <query>       search files on the server
  serve                run the local web panel backend`

type cli struct {
	ctrl   *panel.Controller
	flags  types.Config
	config types.AppConfig
	hub    *notify.Hub
	in     *bufio.Reader
	out    io.Writer
}

func (a *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		if err := a.ctrl.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	case "serve":
		a.ctrl.Start(ctx)
		return a.serve(ctx)
	}

	// every remaining command needs a session
	if a.ctrl.Start(ctx) != panel.StateLoggedIn {
		return errors.New("not logged in, run: fsadmin login")
	}
	var err error
	switch command {
	case "status":
		a.status()
	case "ls":
		err = a.list(ctx, args)
	case "upload":
		err = a.upload(ctx, args)
	case "rm":
		err = a.remove(ctx, args)
	case "get":
		err = a.download(ctx, args)
	case "view":
		err = a.view(args)
	case "info":
		err = a.info(ctx, args)
	case "search":
		err = a.search(ctx, args)
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return err
}

func (a *cli) login(ctx context.Context, args []string) error {
	username, password := tool.EnvCredentials()
	if len(args) > 0 {
		username = args[0]
	}
	var err error
	if strings.TrimSpace(username) == "" {
		if username, err = a.prompt("Username: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = a.readPassword("Password: "); err != nil {
			return err
		}
	}
	if err := a.ctrl.Login(ctx, username, password); err != nil {
		if snap := a.ctrl.Snapshot(); snap.LoginError != nil {
			return errors.New(snap.LoginError.Text)
		}
		return err
	}
	fmt.Fprintln(a.out, view.TerminalMessage(view.Message{Text: "Logged in", Kind: view.KindSuccess}))
	a.status()
	return nil
}

func (a *cli) status() {
	snap := a.ctrl.Snapshot()
	fmt.Fprintf(a.out, "Server:  %s\n", a.config.Server)
	fmt.Fprintf(a.out, "Client:  %s\n", snap.ClientID)
	fmt.Fprintf(a.out, "Session: %s\n", snap.State)
	switch {
	case snap.Health.CheckedAt.IsZero():
		fmt.Fprintln(a.out, "Health:  not checked")
	case snap.Health.Online:
		fmt.Fprintf(a.out, "Health:  %s (%s %s)\n", snap.Health.Label, snap.Health.Service, snap.Health.Version)
	default:
		fmt.Fprintf(a.out, "Health:  %s: %s\n", snap.Health.Label, snap.Health.Error)
	}
	if !snap.List.Empty() {
		fmt.Fprintf(a.out, "Files:   %d\n", len(snap.List.Rows))
	}
}

func (a *cli) list(ctx context.Context, args []string) error {
	if a.flags.UseFolder != "" {
		if err := a.ctrl.SelectFolder(ctx, a.flags.UseFolder); err != nil {
			fmt.Fprintln(a.out, view.TerminalList(a.ctrl.Snapshot().List))
			return err
		}
	}
	snap := a.ctrl.Snapshot()
	list := snap.List
	if len(args) > 0 {
		list = a.ctrl.Search(strings.Join(args, " "))
	}
	fmt.Fprintln(a.out, view.TerminalFolders(snap.Folders))
	fmt.Fprintln(a.out, view.TerminalList(list))
	if list.Error != "" {
		return errors.New(list.Error)
	}
	return nil
}

func (a *cli) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("usage: fsadmin upload <path>...")
	}
	sources := make([]panel.UploadSource, 0, len(paths))
	for _, p := range paths {
		src, err := panel.PathSource(p)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	results, err := a.ctrl.UploadFiles(ctx, sources, a.flags.UseFolder)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func (a *cli) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fsadmin rm <fileId>")
	}
	err := a.ctrl.DeleteFile(ctx, args[0], func(f types.FileRecord) bool {
		if a.flags.AssumeYes {
			return true
		}
		answer, err := a.prompt(fmt.Sprintf("Are you sure you want to delete %s? [y/N] ", f.OriginalName))
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	})
	if errors.Is(err, panel.ErrNotConfirmed) {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	return err
}

func (a *cli) download(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fsadmin get <fileId>")
	}
	path, err := a.ctrl.DownloadFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, path)
	return nil
}

func (a *cli) view(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fsadmin view <fileId|url>")
	}
	target, err := a.ctrl.ViewFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, target)
	qr, err := view.TerminalQRCode(target)
	if err != nil {
		tool.DefaultLogger.Warnf("%v", err)
		return nil
	}
	fmt.Fprint(a.out, qr)
	return nil
}

func (a *cli) info(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fsadmin info <fileId>")
	}
	f, err := a.ctrl.FileInfo(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", view.FileIcon(f.MimeType), f.OriginalName)
	fmt.Fprintf(a.out, "  id:       %s\n", f.FileID)
	fmt.Fprintf(a.out, "  size:     %s\n", view.FormatFileSize(f.Size))
	fmt.Fprintf(a.out, "  type:     %s\n", f.MimeType)
	fmt.Fprintf(a.out, "  uploaded: %s\n", view.FormatTimestamp(f.UploadedAt))
	if f.Folder != "" {
		fmt.Fprintf(a.out, "  folder:   %s\n", f.Folder)
	}
	if f.Hash != "" {
		fmt.Fprintf(a.out, "  sha256:   %s\n", f.Hash)
	}
	fmt.Fprintf(a.out, "  url:      %s\n", f.URL)
	return nil
}

func (a *cli) search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: fsadmin search <query>")
	}
	list, err := a.ctrl.SearchServer(ctx, types.SearchRequest{Query: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, view.TerminalList(list))
	return nil
}

func (a *cli) serve(ctx context.Context) error {
	server := api.NewServer(a.config.PanelPort, a.ctrl, a.hub)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	tool.DefaultLogger.Infof("Shutting down panel server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *cli) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %v", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *cli) readPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return a.prompt(label)
	}
	fmt.Fprint(a.out, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	return string(b), nil
}

// terminalBroadcaster prints banner messages and upload progress as they happen.
type terminalBroadcaster struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalBroadcaster(out io.Writer) *terminalBroadcaster {
	return &terminalBroadcaster{out: out}
}

func (t *terminalBroadcaster) Broadcast(n *types.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch n.Type {
	case types.NotifyTypeMessage:
		fmt.Fprintln(t.out, view.TerminalMessage(view.Message{Text: n.Message, Kind: n.Kind}))
	case types.NotifyTypeProgress:
		sent, _ := n.Data["sent"].(int64)
		total, _ := n.Data["total"].(int64)
		name, _ := n.Data["fileName"].(string)
		pct := 100
		if total > 0 {
			pct = int(sent * 100 / total)
		}
		fmt.Fprintf(t.out, "\r%s: %s / %s (%d%%)", name, view.FormatFileSize(sent), view.FormatFileSize(total), pct)
		if total >= 0 && sent >= total {
			fmt.Fprintln(t.out)
		}
	}
}
