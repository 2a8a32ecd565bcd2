package commands

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/diagnosis"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/fileeditor"
	"github.com/teranos/hmdraft/logger"
	"github.com/teranos/hmdraft/rpc"
)

// EditCmd edits a draft through a local file with autosave
var EditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a draft through a local JSON file, saving changes as you go",
	Long: `Write the draft to a local JSON file and watch it. Every save of the
file is diffed against the last saved state and sent to the daemon
after the autosave quiet period. Pending edits are flushed on exit.

Commands read from stdin while editing:
  retry    fetch the draft again after a load error
  reset    discard the draft and start over from the published document
  restore  re-save the current file after a save error
  quit     flush pending edits and exit

Examples:
  hmdraft edit <id>                 # Edit <id>.json in the current directory
  hmdraft edit <id> --file doc.json # Edit a specific file`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var editFile string

func init() {
	EditCmd.Flags().StringVarP(&editFile, "file", "f", "", "Document file to edit (default <id>.json)")
}

type editSession struct {
	client   *rpc.Client
	cfg      *am.Config
	editor   *fileeditor.Editor
	diag     draft.Diagnosis
	commands <-chan string
}

func runEdit(cmd *cobra.Command, args []string) error {
	id := args[0]
	path := editFile
	if path == "" {
		path = id + ".json"
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cfg, err := dialDaemon(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	session := &editSession{
		client:   client,
		cfg:      cfg,
		editor:   fileeditor.New(path, fileeditor.Options{Logger: logger.ComponentLogger("fileeditor")}),
		commands: readCommands(os.Stdin),
	}

	if cfg.Diagnosis.Enabled {
		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()
		log := diagnosis.New(database, diagnosis.Options{
			Buffer:       cfg.Diagnosis.Buffer,
			MaxPerSecond: float64(cfg.Diagnosis.MaxPerSecond),
			Logger:       logger.ComponentLogger("diagnosis"),
		})
		defer log.Close()
		session.diag = log
	}

	pterm.Info.Printf("Editing %s in %s (Ctrl+C or \"quit\" to exit)\n", id, path)
	for id != "" {
		next, err := session.run(ctx, id)
		if err != nil {
			return err
		}
		if next != "" {
			pterm.Warning.Printf("Reloading draft %s\n", next)
		}
		id = next
	}
	return nil
}

// run drives one machine until the user quits or the machine asks for a
// reload, in which case it returns the id to load next.
func (s *editSession) run(ctx context.Context, id string) (string, error) {
	reloads := make(chan string, 1)
	m, err := draft.New(draft.Options{
		DocumentID:     id,
		Gateway:        s.client,
		Editor:         s.editor,
		Diagnosis:      s.diag,
		Comparator:     comparator(s.cfg),
		Debounce:       s.cfg.AutosaveDebounce(),
		MountDelay:     s.cfg.MountDelay(),
		SavedIndicator: s.cfg.SavedIndicatorDuration(),
		OnReload: func(next string) {
			select {
			case reloads <- next:
			default:
			}
		},
		OnIndicator: showIndicator,
		Logger:      logger.ComponentLogger("draft"),
	})
	if err != nil {
		return "", err
	}

	// Gateway calls must outlive Ctrl+C so the exit flush can still save
	m.Start(context.WithoutCancel(ctx))
	snaps, unsubscribe := m.Subscribe()
	defer unsubscribe()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- s.editor.Watch(watchCtx, func(title string) {
			m.Send(draft.TitleChange(title))
		})
	}()

	last := m.State()
	for {
		select {
		case <-ctx.Done():
			return "", s.close(m)

		case next := <-reloads:
			return next, s.close(m)

		case err := <-watchErr:
			if err != nil {
				_ = s.close(m)
				return "", err
			}

		case snap := <-snaps:
			if snap.State != last {
				reportState(snap)
				last = snap.State
			}

		case line, ok := <-s.commands:
			if !ok {
				s.commands = nil
				continue
			}
			if quit := s.handleCommand(m, line); quit {
				return "", s.close(m)
			}
		}
	}
}

func (s *editSession) handleCommand(m *draft.Machine, line string) bool {
	switch strings.TrimSpace(line) {
	case "":
	case "quit", "exit", "q":
		return true
	case "retry":
		m.Send(draft.Simple(draft.EventGetDraftRetry))
	case "reset":
		if m.State() == draft.StateError {
			m.Send(draft.Simple(draft.EventResetCorruptDraft))
		} else {
			m.Send(draft.Simple(draft.EventResetDraft))
		}
	case "restore":
		m.Send(draft.Simple(draft.EventRestoreDraft))
	case "status":
		reportState(m.Snapshot())
	default:
		pterm.Warning.Printf("Unknown command %q (retry, reset, restore, status, quit)\n", line)
	}
	return false
}

func (s *editSession) close(m *draft.Machine) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ClientTimeout())
	defer cancel()
	if err := m.Close(ctx); err != nil {
		return errors.WithHint(err, "your edits are still in the file; run \"hmdraft diff --apply\" to save them")
	}
	return nil
}

func readCommands(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}

func showIndicator(state draft.IndicatorState) {
	switch state {
	case draft.IndicatorSaving:
		pterm.Info.Println("Saving...")
	case draft.IndicatorSaved:
		pterm.Success.Println("Saved")
	case draft.IndicatorError:
		pterm.Error.Println("Save failed")
	}
}

func reportState(s draft.Snapshot) {
	switch s.State {
	case draft.StateIdle:
		if s.Draft != nil {
			pterm.Debug.Printf("Draft %s ready\n", s.DocumentID)
		}
	case draft.StateError:
		pterm.Error.Printf("Could not load draft %s: %v\n", s.DocumentID, s.Err)
		pterm.Info.Println("Type \"retry\" to try again or \"reset\" to start over")
	case draft.StateSaveError:
		pterm.Error.Printf("Could not save: %v\n", s.Err)
		pterm.Info.Println("Type \"restore\" to re-save your edits or \"reset\" to discard them")
	}
}
