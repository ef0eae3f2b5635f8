package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"containerCracker/internal/core/algorithm"
	"containerCracker/internal/core/domain"
	"containerCracker/internal/core/service"
	"containerCracker/internal/port"
)

// Console is the operator front end over the attack service.
type Console struct {
	attackService service.AttackServiceInterface
	config        *Config
	prompt        *Prompter
	styles        Styles
	logger        *zap.Logger
}

func NewConsole(svc service.AttackServiceInterface, cfg *Config, logger *zap.Logger) *Console {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		attackService: svc,
		config:        cfg,
		prompt:        NewPrompter(cfg.In, cfg.Out),
		styles:        NewStyles(cfg.Out),
		logger:        logger,
	}
}

func (c *Console) Observer() port.Observer {
	return NewProgressObserver(c.config.Out, c.config.Progress)
}

// RunAttack launches session and renders it. Configuration errors are
// rendered before being returned.
func (c *Console) RunAttack(ctx context.Context, session *domain.AttackSession) (*domain.AttackResult, error) {
	result, err := c.attackService.Launch(ctx, session, c.Observer())
	if err != nil && result == nil {
		c.println(RenderError(c.styles, err))
	}
	return result, err
}

func (c *Console) Resume(ctx context.Context) (*domain.AttackResult, error) {
	result, err := c.attackService.Resume(ctx, c.Observer())
	if err != nil && result == nil && !errors.Is(err, domain.ErrNoSession) {
		c.println(RenderError(c.styles, err))
	}
	return result, err
}

// RunInteractive offers to resume a saved session, then loops over the
// main menu until the operator exits, input ends or ctx is cancelled.
// domain.ErrInterrupted is returned when an attack was interrupted.
func (c *Console) RunInteractive(ctx context.Context) error {
	if err := c.offerResume(ctx); err != nil {
		return c.finish(err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return c.finish(domain.ErrInterrupted)
		}

		c.println(c.styles.Welcome.Render(c.styles.Bold.Render("All-in-One Password Recovery Utility")))
		choice, err := c.prompt.Choose(ctx, "Select File Type:", []string{
			"Crack ZIP file",
			"Crack PDF file",
			"Exit",
		}, 3)
		if err != nil {
			return c.finish(err)
		}
		if choice == 3 {
			c.println(c.styles.Title.Render("Goodbye!"))
			return nil
		}

		kind := domain.KindZIP
		if choice == 2 {
			kind = domain.KindPDF
		}

		session, err := c.askSession(ctx, kind)
		if err != nil {
			return c.finish(err)
		}
		if session == nil {
			continue
		}

		c.logger.Debug("interactive attack configured",
			zap.String("mode", string(session.Mode)),
			zap.String("target", session.FilePath))

		if _, err := c.RunAttack(ctx, session); err != nil {
			if errors.Is(err, domain.ErrInterrupted) {
				return err
			}
			if !domain.IsConfigurationError(err) && !errors.Is(err, domain.ErrCapacityExceeded) &&
				!errors.Is(err, domain.ErrNoCandidates) && !errors.Is(err, domain.ErrWorkersFailed) {
				return err
			}
		}

		if _, err := c.prompt.Ask(ctx, "\nPress Enter to return to the main menu", ""); err != nil {
			return c.finish(err)
		}
	}
}

func (c *Console) offerResume(ctx context.Context) error {
	pending, err := c.attackService.PendingSession()
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	c.println(RenderSession(c.styles, pending))
	resume, err := c.prompt.Confirm(ctx,
		fmt.Sprintf("Found an unfinished session for '%s'. Resume?", filepath.Base(pending.FilePath)), true)
	if err != nil {
		return err
	}
	if !resume {
		return c.attackService.DiscardSession()
	}

	if _, err := c.Resume(ctx); err != nil && !errors.Is(err, domain.ErrNoSession) {
		if errors.Is(err, domain.ErrInterrupted) {
			return err
		}
		c.logger.Warn("resume failed", zap.Error(err))
	}
	return nil
}

// askSession collects the attack parameters for kind. A nil session
// without error sends the operator back to the main menu.
func (c *Console) askSession(ctx context.Context, kind domain.ContainerKind) (*domain.AttackSession, error) {
	path, err := c.prompt.AskPath(ctx, fmt.Sprintf("Enter the path to the .%s file", kind))
	if err != nil {
		return nil, err
	}
	if !targetLooksValid(path, kind) {
		c.println(c.styles.Error.Render("Error:") + " File not found or incorrect type.")
		return nil, nil
	}

	mode, err := c.prompt.Choose(ctx, fmt.Sprintf("Select Attack Mode for %s:", filepath.Base(path)), []string{
		"Dictionary Attack",
		"Brute-Force Attack",
		"Hybrid Attack",
		"Back to Main Menu",
	}, 4)
	if err != nil {
		return nil, err
	}

	session := &domain.AttackSession{FilePath: path, FileType: kind}
	switch mode {
	case 1, 3:
		session.Mode = domain.ModeDictionary
		if mode == 3 {
			session.Mode = domain.ModeHybrid
		}
		wordlist, err := c.prompt.AskPath(ctx, "Enter the path to your wordlist file")
		if err != nil {
			return nil, err
		}
		if _, statErr := os.Stat(wordlist); statErr != nil {
			c.println(c.styles.Error.Render("Error:") + " Wordlist file not found.")
			return nil, nil
		}
		session.Wordlist = wordlist
	case 2:
		session.Mode = domain.ModeBruteForce
		c.println(RenderCharsetHelp(c.styles, algorithm.CharsetHelp()))
		if session.Charset, err = c.prompt.Ask(ctx, "Enter charset combination (e.g., 'luds' for all)", c.config.DefaultCharset); err != nil {
			return nil, err
		}
		if session.MinLength, err = c.prompt.AskInt(ctx, "Enter minimum length", c.config.DefaultMinLen, 1); err != nil {
			return nil, err
		}
		if session.MaxLength, err = c.prompt.AskInt(ctx, "Enter maximum length", max(c.config.DefaultMaxLen, session.MinLength), session.MinLength); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}

	if session.Workers, err = c.prompt.AskInt(ctx, "Enter number of worker processes", max(1, c.config.DefaultWorkers), 1); err != nil {
		return nil, err
	}
	return session, nil
}

// finish turns the end of operator input into a clean exit.
func (c *Console) finish(err error) error {
	if errors.Is(err, context.Canceled) {
		return domain.ErrInterrupted
	}
	if errors.Is(err, io.EOF) {
		c.println("")
		return nil
	}
	return err
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.config.Out, s)
}

func targetLooksValid(path string, kind domain.ContainerKind) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return strings.HasSuffix(strings.ToLower(path), string(kind))
}
