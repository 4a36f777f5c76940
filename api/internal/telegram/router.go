package telegram

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/metrics"
)

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Router struct {
	Bot  Sender
	Calc *curve.Calculator
	Log  logr.Logger

	prefs prefStore
}

const usage = `Send material parameters and get a stress-strain curve as CSV.

/curve E=200000 Sy=250 Et=1000 emax=0.01 [model=Fracture_fit] [points=50] [mode=bilinear]
/model  pick the default hardening model for this chat
/mode   pick scaled (E*strain*m) or bilinear (elastic + linear hardening)
/reset  forget this chat's model and mode
/health`

var knownCommands = map[string]bool{
	"start": true, "help": true, "health": true, "curve": true,
	"model": true, "mode": true, "reset": true,
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(upd.Message)
		return
	}
	r.send(upd.Message.Chat.ID, "Use /curve to compute a curve, /help for details.")
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	cmd := msg.Command()
	label := cmd
	if !knownCommands[cmd] {
		label = "unknown"
	}
	metrics.BotCommandsTotal.WithLabelValues(label).Inc()

	switch cmd {
	case "start", "help":
		r.send(cid, usage)
	case "health":
		r.send(cid, "✅ OK")
	case "curve":
		r.handleCurve(cid, msg.CommandArguments())
	case "model":
		r.handleModel(cid, strings.TrimSpace(msg.CommandArguments()))
	case "mode":
		r.handleMode(cid, strings.TrimSpace(msg.CommandArguments()))
	case "reset":
		r.prefs.clear(cid)
		r.send(cid, "Chat defaults cleared.")
	default:
		r.send(cid, "Unknown command. /help")
	}
}

func (r *Router) handleCurve(chatID int64, argText string) {
	args, err := parseCurveArgs(argText)
	if err != nil {
		r.send(chatID, "❌ "+err.Error()+"\n\n"+usage)
		return
	}
	p := args.Params
	prefs := r.prefs.get(chatID)
	if !args.HasModel {
		p.ModelType = prefs.ModelTag
	}
	if !args.HasMode {
		p.Mode = prefs.Mode
	}
	if !args.HasPoints {
		p.NumPoints = r.Calc.DefaultPoints()
	}

	plan, err := r.Calc.Resolve(p)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	pts := curve.Evaluate(plan)
	metrics.CalculationsTotal.WithLabelValues(string(plan.Mode), plan.Model.String()).Inc()

	var buf bytes.Buffer
	if err := curve.WriteCSV(&buf, pts); err != nil {
		r.Log.Error(err, "Failed to render curve CSV", "chatID", chatID)
		r.send(chatID, "❌ could not render the curve")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "stress_strain.csv", Bytes: buf.Bytes()})
	doc.Caption = summary(plan, p.ModelType, pts)
	if _, err := r.Bot.Send(doc); err != nil {
		r.Log.Error(err, "Failed to send curve document", "chatID", chatID)
	}
}

func summary(plan curve.Plan, tag string, pts []curve.Point) string {
	var b strings.Builder
	if plan.Mode == curve.ModeBilinear {
		fmt.Fprintf(&b, "Bilinear curve, %d points\n", len(pts))
		fmt.Fprintf(&b, "Yield strain: %g\n", curve.YieldStrain(plan.E, plan.Sy))
	} else {
		fmt.Fprintf(&b, "Scaled linear curve (%s, x%g), %d points\n", plan.Model, plan.Model.Multiplier(), len(pts))
		if !plan.KnownTag && strings.TrimSpace(tag) != "" {
			fmt.Fprintf(&b, "Model %q is unknown, used %s\n", tag, plan.Model)
		}
	}
	last := pts[len(pts)-1]
	fmt.Fprintf(&b, "Last point: strain %g, stress %g", last.Strain, last.Stress)
	return b.String()
}

func (r *Router) handleModel(chatID int64, tag string) {
	cat := r.Calc.Catalogue()
	if tag == "" {
		msg := tgbotapi.NewMessage(chatID, "Choose the hardening model for /curve:")
		msg.ReplyMarkup = makeModelKeyboard(cat)
		r.sendMsg(msg)
		return
	}
	tag = strings.ReplaceAll(tag, "_", " ")
	if _, ok := cat.Lookup(tag); !ok {
		r.send(chatID, "Unknown model. Known: "+strings.Join(cat.Tags(), ", "))
		return
	}
	r.prefs.setModel(chatID, tag)
	r.send(chatID, "✅ Model: "+tag)
}

func (r *Router) handleMode(chatID int64, arg string) {
	if arg == "" {
		msg := tgbotapi.NewMessage(chatID, "Choose the curve formula:")
		msg.ReplyMarkup = makeModeKeyboard()
		r.sendMsg(msg)
		return
	}
	mode, err := curve.ParseMode(arg)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	r.prefs.setMode(chatID, mode)
	r.send(chatID, "✅ Mode: "+string(mode))
}

func (r *Router) send(chatID int64, text string) {
	r.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMsg(msg tgbotapi.MessageConfig) {
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Error(err, "Failed to send message", "chatID", msg.ChatID)
	}
}
