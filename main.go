package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"qterm/config"
	"qterm/session"
	"qterm/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	command := cfg.Shell
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()
	screen.EnableMouse()

	width, height := screen.Size()
	rows := height - 1
	if rows < 1 {
		rows = 1
	}

	sess := session.New(session.Options{
		Rows:         rows,
		Cols:         width,
		Command:      command,
		Args:         args,
		Scrollback:   cfg.Scrollback,
		GraceTimeout: time.Duration(cfg.KillGraceSec * float64(time.Second)),
		Hidden:       cfg.StartHidden,
	})

	term := ui.NewTerminal(sess, cfg.GetTheme())
	term.Attach(screen)

	stopWatch := config.Watch(func(c *config.Config) {
		term.Theme = c.GetTheme()
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stopWatch()

	if err := sess.Start(); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	for {
		term.Render(screen, 0, 0, width, height)
		screen.Show()

		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			width, height = ev.Size()
			rows = height - 1
			if rows < 1 {
				rows = 1
			}
			sess.Resize(rows, width)
			screen.Sync()
		case *tcell.EventKey:
			term.HandleKey(ev)
		case *tcell.EventMouse:
			term.HandleMouse(ev)
		case *ui.StateEvent:
			if ev.New == session.Exited || ev.New == session.Killed {
				return
			}
		case *ui.OutputEvent, *tcell.EventInterrupt:
			// Redraw on the next loop pass.
		case nil:
			return
		}
	}
}
