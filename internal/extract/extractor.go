package extract

import (
	"log/slog"
	"math"
	"strings"

	"github.com/hramos/chatledger/internal/chat"
	"github.com/hramos/chatledger/internal/model"
	"github.com/hramos/chatledger/internal/normalize"
)

// totalTolerance bounds the accepted drift between an explicit "Total" field
// and the recomputed payment+savings sum. Mismatches beyond it are logged,
// never rejected: the recomputed value is authoritative.
const totalTolerance = 0.01

// Resolver supplies persisted display-name and branch overrides for an
// identifier. Extracted text is the fallback when no override exists.
type Resolver interface {
	Resolve(identifier string) (displayName, branch string, ok bool)
}

// WeeklyFunc looks up the expected weekly payment for an identifier.
type WeeklyFunc func(identifier string, kind model.Kind) string

// Extractor turns segmented chat messages into payment entries.
type Extractor struct {
	resolver Resolver
	weekly   WeeklyFunc
}

// New creates an extractor. Either dependency may be nil; entries then keep
// the extracted name and the "not found" weekly sentinel.
func New(resolver Resolver, weekly WeeklyFunc) *Extractor {
	return &Extractor{resolver: resolver, weekly: weekly}
}

// FromMessage extracts zero or more payment entries from one message.
// Bodies that match no detector are dropped silently; a record missing a
// mandatory field is dropped and logged, and the batch continues.
func (x *Extractor) FromMessage(msg chat.Message, sourceFile string) []model.PaymentEntry {
	body := msg.Body
	if strings.TrimSpace(body) == "" || isSystemNotice(body) {
		return nil
	}

	// Individual detection takes precedence over an incidental group token.
	if clientMarkerRe.MatchString(body) {
		if entry, ok := x.individualFromMarker(msg, sourceFile); ok {
			return []model.PaymentEntry{entry}
		}
		return nil
	}
	if m := bareIndividualRe.FindStringSubmatch(body); m != nil {
		if entry, ok := x.individualFromBareLine(msg, m[1], m[2], sourceFile); ok {
			return []model.PaymentEntry{entry}
		}
		return nil
	}
	if groupMarkerRe.MatchString(body) {
		return x.groupsFromBody(msg, sourceFile)
	}

	return nil
}

// individualFromMarker parses the Cliente markup variant. Identifier, amount
// and cycle are mandatory.
func (x *Extractor) individualFromMarker(msg chat.Message, sourceFile string) (model.PaymentEntry, bool) {
	body := msg.Body

	id, _, ok := identifierRules.Find(body)
	if !ok {
		slog.Debug("Dropping individual message without identifier", "date", msg.Date, "time", msg.Time)
		return model.PaymentEntry{}, false
	}

	amountText, _, ok := amountRules.Find(body)
	if !ok {
		slog.Debug("Dropping individual message without amount", "id", id)
		return model.PaymentEntry{}, false
	}

	rawCycle, _, _ := cycleRules.Find(body)
	cycle, valid := normalize.Cycle(rawCycle)
	if !valid {
		slog.Debug("Dropping individual message without valid cycle", "id", id, "cycle", rawCycle)
		return model.PaymentEntry{}, false
	}

	name, _, _ := clientNameRules.Find(body)

	entry := model.PaymentEntry{
		Kind:        model.KindIndividual,
		Identifier:  normalize.ZeroPad(id, 6),
		DisplayName: name,
		Payment:     normalize.ParseAmount(amountText),
		Cycle:       cycle,
	}
	if branch, _, ok := branchRules.Find(body); ok {
		entry.Branch = normalize.StripAccents(branch)
	}
	if concept, _, ok := conceptRules.Find(body); ok {
		entry.Concept = strings.TrimSpace(concept)
	}
	x.finish(&entry, msg, body, sourceFile)
	return entry, true
}

// individualFromBareLine parses the markerless "6 digits + uppercase name"
// variant. A missing amount defaults to 0.0 pending the image; a missing or
// invalid cycle defaults to "01" with a warning.
func (x *Extractor) individualFromBareLine(msg chat.Message, id, name, sourceFile string) (model.PaymentEntry, bool) {
	body := msg.Body

	entry := model.PaymentEntry{
		Kind:        model.KindIndividual,
		Identifier:  normalize.ZeroPad(id, 6),
		DisplayName: name,
	}
	if branch, _, ok := branchRules.Find(body); ok {
		entry.Branch = normalize.StripAccents(branch)
	}
	if concept, _, ok := conceptRules.Find(body); ok {
		entry.Concept = strings.TrimSpace(concept)
	}

	if amountText, _, ok := amountRules.Find(body); ok {
		entry.Payment = normalize.ParseAmount(amountText)
	} else {
		if entry.Concept == "" {
			entry.Concept = model.ConceptPending
		}
		slog.Debug("Bare individual payment without amount, pending image", "id", entry.Identifier)
	}

	rawCycle, _, _ := cycleRules.Find(body)
	cycle, valid := normalize.Cycle(rawCycle)
	if !valid {
		slog.Warn("Bare individual payment without valid cycle, defaulting",
			"id", entry.Identifier, "cycle", rawCycle, "default", model.DefaultCycle)
		cycle = model.DefaultCycle
	}
	entry.Cycle = cycle

	x.finish(&entry, msg, body, sourceFile)
	return entry, true
}

// groupsFromBody parses every group block in a message. Each block's fields
// are scoped to the window between its header and the next one; the cycle is
// searched body-wide and is mandatory.
func (x *Extractor) groupsFromBody(msg chat.Message, sourceFile string) []model.PaymentEntry {
	body := msg.Body

	rawCycle, _, _ := cycleRules.Find(body)
	cycle, cycleValid := normalize.Cycle(rawCycle)

	headers := groupHeaderRe.FindAllStringSubmatchIndex(body, -1)
	if len(headers) == 0 {
		return nil
	}

	var entries []model.PaymentEntry
	for i, header := range headers {
		windowStart := header[1]
		windowEnd := len(body)
		if i+1 < len(headers) {
			windowEnd = headers[i+1][0]
		}
		window := body[windowStart:windowEnd]

		name := strings.TrimSpace(body[header[2]:header[3]])
		id := body[header[4]:header[5]]

		amountText, _, ok := amountRules.Find(window)
		if !ok {
			slog.Debug("Dropping group block without amount", "id", id, "group", name)
			continue
		}

		if !cycleValid {
			slog.Debug("Dropping group block without valid cycle", "id", id, "cycle", rawCycle)
			continue
		}

		entry := model.PaymentEntry{
			Kind:        model.KindGroup,
			Identifier:  normalize.ZeroPad(id, 6),
			DisplayName: name,
			Payment:     normalize.ParseAmount(amountText),
			Cycle:       cycle,
		}
		if savingsText, _, ok := savingsRules.Find(window); ok {
			entry.Savings = normalize.ParseAmount(savingsText)
		}
		if branch, _, ok := branchRules.Find(window); ok {
			entry.Branch = normalize.StripAccents(branch)
		}
		if seq, _, ok := sequenceRules.Find(window); ok {
			entry.SequenceNumber = seq
		}
		if concept, _, ok := conceptRules.Find(window); ok {
			entry.Concept = strings.TrimSpace(concept)
		}

		x.finish(&entry, msg, window, sourceFile)
		entries = append(entries, entry)
	}

	return entries
}

// finish applies the shared enrichment: totals, overrides, defaults, time
// slot, deposit code and weekly payment.
func (x *Extractor) finish(entry *model.PaymentEntry, msg chat.Message, window, sourceFile string) {
	entry.Date = msg.Date
	entry.Time = msg.Time
	entry.SourceFile = sourceFile

	if entry.Kind == model.KindIndividual {
		// Individual payments never carry savings.
		entry.Savings = 0
	}
	entry.Payment = round2(entry.Payment)
	entry.Savings = round2(entry.Savings)
	entry.Total = round2(entry.Payment + entry.Savings)

	// An explicit Total validates the computed one but never overrides it.
	if totalText, _, ok := explicitTotalRules.Find(window); ok {
		explicit := normalize.ParseAmount(totalText)
		if math.Abs(explicit-entry.Total) > totalTolerance {
			slog.Warn("Explicit total disagrees with computed total",
				"id", entry.Identifier,
				"explicit", explicit,
				"computed", entry.Total)
		}
	}

	if x.resolver != nil {
		if name, branch, ok := x.resolver.Resolve(entry.Identifier); ok {
			if name != "" {
				entry.DisplayName = name
			}
			if branch != "" {
				entry.Branch = branch
			}
		}
	}
	entry.DisplayName = strings.ToUpper(strings.TrimSpace(entry.DisplayName))

	if entry.Branch == "" {
		entry.Branch = model.BranchPending
	}
	if entry.SequenceNumber == "" {
		entry.SequenceNumber = model.SequencePending
	}
	if entry.Concept == "" {
		entry.Concept = model.ConceptPending
	}

	hour := msg.Hour()
	if hour < 0 {
		slog.Debug("Malformed message time, defaulting to morning slot",
			"id", entry.Identifier, "time", msg.Time)
		hour = 0
	}
	entry.TimeSlot = normalize.TimeSlot(hour)
	entry.DepositCode = normalize.DepositCode(entry.Kind.TypeTag(), entry.Identifier, entry.Cycle)

	entry.WeeklyPayment = model.WeeklyNotFound
	if x.weekly != nil {
		if amount := x.weekly(entry.Identifier, entry.Kind); amount != "" {
			entry.WeeklyPayment = amount
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
