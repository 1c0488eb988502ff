package chat

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/dotion/internal/calendar"
)

const systemPromptTemplate = `You are a helpful assistant. The current date and time is: %s.

IMPORTANT TIMEZONE INFORMATION:
- The user's timezone is: %s
- When creating or updating events, you MUST use ISO 8601 format WITHOUT timezone suffix (e.g., "2026-01-28T15:00:00")
- The system will automatically apply the %s timezone
- DO NOT use UTC (Z suffix) or timezone offsets in your datetime strings
- When modifying event times, carefully calculate the new times based on the original times shown below

- When suggesting specific time slots to the user (e.g. for a break, meeting, or focused work), you MUST use the 'propose_slots' tool.
- DO NOT just list the slots in your text response. The UI needs the structured data to display interactive options.
- If you say "Here are some options" or "I found some times", you MUST call 'propose_slots' in the same turn.

CRITICAL PRESENTATION STYLE:
- You MUST provide a brief, friendly conversational summary properly answering the user's request.
- When finding slots or events, summarize the context (e.g. "You have class and Bible study today, but I found a few breaks.") before distinguishing the UI elements.
- DO NOT list specific times or event details in the text if they are going to be shown in a UI card.
- Assume the user can see the UI cards, so your text should just be a friendly conversational lead-in.
- Be concise and sound like a helpful friend (using words like "I found", "Here are", "Check these out").

CRITICAL TOOL USAGE:
- You CANNOT perform calendar actions (create, update, delete) by text alone.
- You MUST call the corresponding tool ('create_calendar_event', 'update_calendar_event', 'delete_calendar_event') to execute the action.
- If you say "I will update...", "I'm scheduling...", or "I'll delete...", you MUST output the tool call in that SAME response.
- Do NOT say you have done something unless you have successfully called the tool.

CRITICAL UI INTERACTION LOGIC:
- If the user selects a slot (e.g., says "I'll take the slot: ..."), you MUST immediately call 'create_calendar_event' with those details.
- Use the date/time information from the user's message to fill the start/end times.
- Derive a summary from the slot label (e.g. "Nap", "Study Session") or the conversation context.
- Do not ask for confirmation again; just book it.`

const scheduleFooter = `You can reference these events when answering questions about the user's schedule. When the user asks to modify or delete an event, use the event ID shown above.

WHEN EXTENDING OR MODIFYING EVENT TIMES:
1. Look at the current start/end times shown above
2. Calculate the new times carefully (e.g., "extend by 15 minutes" means add exactly 15 minutes to the end time)
3. Use the format: YYYY-MM-DDTHH:MM:SS (e.g., "2026-01-28T16:15:00")
4. Do NOT include timezone offsets or Z suffix`

const authedNote = "You have access to manage the user's Google Calendar. You can create new events, update existing events, or delete events using the provided functions."

// PromptBuilder assembles the upstream message list for one turn: the system
// prompt (current time, timezone rules, schedule context), the conversation
// history trimmed to the token budget, and per-message tool context
// injection.
type PromptBuilder struct {
	timeZone      string
	loc           *time.Location
	contextTokens int
	reserveTokens int
	encoder       *tiktoken.Tiktoken
	logger        *slog.Logger
}

// NewPromptBuilder builds a prompt builder for the given model and timezone.
// contextTokens is the total budget for the request; reserveTokens is held
// back for the system prompt and the model's reply.
func NewPromptBuilder(model, timeZone string, loc *time.Location, contextTokens, reserveTokens int, logger *slog.Logger) *PromptBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model names fall back to the common GPT-4 encoding; token
		// counts stay approximate either way.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
		logger.Debug("no encoding for model, using cl100k_base", slog.String("model", model))
	}
	return &PromptBuilder{
		timeZone:      timeZone,
		loc:           loc,
		contextTokens: contextTokens,
		reserveTokens: reserveTokens,
		encoder:       enc,
		logger:        logger,
	}
}

// Build produces the upstream messages for one turn. history is the
// conversation so far, days the current schedule projection, authed whether
// the session can mutate the calendar.
func (p *PromptBuilder) Build(now time.Time, history []Message, days []calendar.Day, authed bool) []openai.ChatCompletionMessage {
	system := p.systemPrompt(now, days, authed)

	processed := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		processed = append(processed, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: p.messageContent(msg),
		})
	}

	budget := p.contextTokens - p.reserveTokens - p.countTokens(system)
	processed = p.trimToBudget(processed, budget)

	out := make([]openai.ChatCompletionMessage, 0, len(processed)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	return append(out, processed...)
}

// messageContent flattens one history message for the model. Assistant
// messages carrying an event card get the event's identity appended so a
// follow-up like "move it an hour later" resolves to the right event ID.
func (p *PromptBuilder) messageContent(msg Message) string {
	if msg.Role != RoleAssistant || msg.ToolData == nil {
		return msg.Content
	}
	td := msg.ToolData
	switch td.Type {
	case ToolDataCreate, ToolDataUpdate:
		return msg.Content + fmt.Sprintf(
			"\n\n[SYSTEM CONTEXT: I just executed a calendar operation. Event ID: %s. Summary: %q. Time: %s to %s. If the user asks to \"move\", \"change\", or \"delete\" this, use this ID.]",
			td.EventID, td.Summary, td.Start, td.End)
	default:
		return msg.Content
	}
}

func (p *PromptBuilder) systemPrompt(now time.Time, days []calendar.Day, authed bool) string {
	current := now.In(p.loc).Format("Monday, January 2, 2006, 3:04 PM")

	var b strings.Builder
	fmt.Fprintf(&b, systemPromptTemplate, current, p.timeZone, p.timeZone)

	if schedule := p.renderSchedule(days); schedule != "" {
		b.WriteString("\n\nHere is the user's upcoming calendar schedule (next few weeks):\n\n")
		b.WriteString(schedule)
		b.WriteString("\n\n")
		b.WriteString(scheduleFooter)
	}

	if authed {
		b.WriteString("\n\n")
		b.WriteString(authedNote)
	}
	return b.String()
}

// renderSchedule renders the day projection as indented text, one line per
// event with its ID so the model can target mutations precisely.
func (p *PromptBuilder) renderSchedule(days []calendar.Day) string {
	if len(days) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(days))
	for _, day := range days {
		var b strings.Builder
		fmt.Fprintf(&b, "%s (%s):\n", day.Label, day.Date)
		if len(day.Events) == 0 {
			b.WriteString("  No events")
		}
		for i, ev := range day.Events {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "  - %s (ID: %s) (%s)", ev.Summary, ev.ID, p.eventTimes(ev))
			if ev.Location != "" {
				fmt.Fprintf(&b, " at %s", ev.Location)
			}
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func (p *PromptBuilder) eventTimes(ev calendar.Event) string {
	if ev.AllDay {
		return "all day"
	}
	start := p.clockTime(ev.Start)
	end := p.clockTime(ev.End)
	if end == "" {
		return start
	}
	return start + " - " + end
}

func (p *PromptBuilder) clockTime(value string) string {
	if value == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if t, err = time.ParseInLocation("2006-01-02T15:04:05", value, p.loc); err != nil {
			return value
		}
	}
	return t.In(p.loc).Format("3:04 PM")
}

// trimToBudget drops messages from the front until the history fits. The
// most recent message always survives, even when it alone exceeds the
// budget; sending a truncated conversation beats sending none.
func (p *PromptBuilder) trimToBudget(msgs []openai.ChatCompletionMessage, budget int) []openai.ChatCompletionMessage {
	if len(msgs) <= 1 || budget <= 0 {
		if len(msgs) > 1 && budget <= 0 {
			return msgs[len(msgs)-1:]
		}
		return msgs
	}

	total := 0
	counts := make([]int, len(msgs))
	for i, m := range msgs {
		counts[i] = p.countTokens(m.Content) + 4
		total += counts[i]
	}

	start := 0
	for total > budget && start < len(msgs)-1 {
		total -= counts[start]
		start++
	}
	if start > 0 {
		p.logger.Debug("trimmed conversation history",
			slog.Int("dropped", start),
			slog.Int("kept", len(msgs)-start))
	}
	return msgs[start:]
}

func (p *PromptBuilder) countTokens(s string) int {
	if p.encoder == nil {
		// Rough bytes-per-token estimate when no encoder is available.
		return len(s) / 4
	}
	return len(p.encoder.Encode(s, nil, nil))
}
