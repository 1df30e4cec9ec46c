package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/preset"
	"github.com/voxdeck/voxdeck/pkg/realtime"
)

// toolPreviewOutput answers function calls the model makes during a
// preview. Tool execution belongs to the platform dispatcher, so the
// preview only reports the call and lets the model finish its turn.
const toolPreviewOutput = `{"status":"not_executed","note":"tool calls run in the deployed widget"}`

var chatLiveCmd = &cobra.Command{
	Use:   "live <preset>",
	Short: "Open a realtime preview session",
	Long: `Connect a realtime session configured exactly like the deployed
widget: same instructions, voice, temperature, and tool selection.
Type a line to send a user turn; the reply streams back as text (voice
replies print their transcript). Tool calls the model makes are shown
but not executed.

Requires an OpenAI provider key on the preset. End the session with
/exit or Ctrl-D.`,
	Args: cobra.ExactArgs(1),
	RunE: runChatLive,
}

type pendingCall struct {
	callID string
	name   string
	args   string
}

func runChatLive(cmd *cobra.Command, args []string) error {
	c, err := openConsole(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	p, err := c.Presets().GetByName(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if p.ProviderKeyID == "" {
		return fmt.Errorf("preset %q has no provider key (set provider_key and re-apply)", p.Name)
	}
	key, err := c.Presets().Key(cmd.Context(), p.ProviderKeyID)
	if err != nil {
		return err
	}
	if key.Provider != preset.ProviderOpenAI {
		return fmt.Errorf("realtime preview needs an %q provider key, preset %q uses %q",
			preset.ProviderOpenAI, p.Name, key.Provider)
	}
	if key.Secret == "" {
		return fmt.Errorf("provider key %q has no secret", key.Name)
	}

	sel, err := c.Tools().Load(cmd.Context(), p.ID)
	if err != nil {
		return err
	}
	config := preset.RealtimeConfig(p, sel)
	printVerbose("preset %s: %d tools declared to the session", p.Name, len(config.Tools))

	connectCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	sess, err := realtime.NewClient(key.Secret).Connect(connectCtx, p.RealtimeModel())
	if err != nil {
		return fmt.Errorf("connect realtime session: %w", err)
	}
	defer sess.Close()

	ctx := cmd.Context()
	var (
		wg             sync.WaitGroup
		sessionCreated = make(chan struct{})
		createdOnce    sync.Once
		turnDone       = make(chan []pendingCall, 1)
		streamDone     = make(chan struct{})
		streamErr      error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(streamDone)
		var calls []pendingCall
		for event, err := range sess.Events() {
			if err != nil {
				streamErr = err
				return
			}
			switch event.Type {
			case realtime.EventTypeSessionCreated:
				createdOnce.Do(func() { close(sessionCreated) })
			case realtime.EventTypeSessionUpdated:
				printVerbose("session config applied")
			case realtime.EventTypeResponseTextDelta, realtime.EventTypeResponseAudioTranscriptDelta:
				fmt.Print(event.Delta)
			case realtime.EventTypeResponseFunctionCallArgumentsDone:
				calls = append(calls, pendingCall{callID: event.CallID, name: event.Name, args: event.Arguments})
			case realtime.EventTypeResponseDone:
				fmt.Println()
				if event.Response != nil && event.Response.Usage != nil {
					printVerbose("tokens: %d in, %d out",
						event.Response.Usage.InputTokens, event.Response.Usage.OutputTokens)
				}
				out := calls
				calls = nil
				turnDone <- out
			case realtime.EventTypeRateLimitsUpdated:
				for _, rl := range event.RateLimits {
					printVerbose("rate limit %s: %d/%d remaining", rl.Name, rl.Remaining, rl.Limit)
				}
			}
		}
	}()

	select {
	case <-sessionCreated:
		printVerbose("session %s created", sess.SessionID())
	case <-streamDone:
		wg.Wait()
		if streamErr != nil {
			return streamErr
		}
		return fmt.Errorf("session closed before it opened")
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timed out waiting for the session to open")
	}

	if err := sess.UpdateSession(ctx, config); err != nil {
		return err
	}

	fmt.Printf("Connected: preset %q on %s.\n", p.Name, p.RealtimeModel())
	fmt.Println("Type a message and press Enter. /exit ends the session.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
input:
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			break
		}

		if err := sess.SendUserText(ctx, line); err != nil {
			return err
		}
		if err := sess.CreateResponse(ctx, nil); err != nil {
			return err
		}

		// One turn may need several responses when the model calls tools.
		for {
			var calls []pendingCall
			select {
			case calls = <-turnDone:
			case <-streamDone:
				break input
			}
			if len(calls) == 0 {
				break
			}
			for _, call := range calls {
				fmt.Printf("[tool call] %s %s\n", call.name, call.args)
				if err := sess.AddFunctionCallOutput(ctx, call.callID, toolPreviewOutput); err != nil {
					return err
				}
			}
			if err := sess.CreateResponse(ctx, nil); err != nil {
				return err
			}
		}
	}

	sess.Close()
	wg.Wait()
	if streamErr != nil {
		return streamErr
	}
	return scanner.Err()
}

func init() {
	chatCmd.AddCommand(chatLiveCmd)
}
