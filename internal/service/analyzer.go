package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// maxHistoryRecords bounds per-session scan history. Enforced here, not in
// the store: append then trim, newest first.
const maxHistoryRecords = 10

// commonIngredients is the fallback keyword scan list applied to extracted
// label text when no structured model output names any ingredients.
var commonIngredients = []string{
	"sugar", "salt", "flour", "oil", "butter", "milk", "eggs", "cheese",
	"chocolate", "vanilla", "cinnamon", "garlic", "onion", "tomato",
	"rice", "pasta", "oats", "nuts", "honey", "yeast", "vinegar",
}

// AnalysisService orchestrates one scan analysis end to end: text
// extraction, the structured model calls, local classification fallbacks,
// advice composition and history persistence. It owns the per-session
// generation tokens that suppress stale commits.
type AnalysisService struct {
	logger     *logrus.Logger
	classifier *NovaClassifier
	nutrition  *NutritionAggregator
	matcher    *AllergenMatcher
	composer   *AdviceComposer
	advice     *ProfileAdviceEngine
	parser     *ResponseParser

	extractor domain.TextExtractor
	model     domain.AdvisoryModel
	storage   domain.ObjectStorage
	history   domain.HistoryStore
	profiles  domain.ProfileStore
	factsKey  string

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// sessionState serializes history writes for one session and tracks which
// analysis run is current. Only the run holding the latest generation may
// commit.
type sessionState struct {
	mu         sync.Mutex
	generation uint64
}

// AnalysisDeps bundles the external collaborators of the analysis service.
// Extractor, model and storage may be nil; the pipeline then runs entirely
// on local fallbacks.
type AnalysisDeps struct {
	Extractor domain.TextExtractor
	Model     domain.AdvisoryModel
	Storage   domain.ObjectStorage
	History   domain.HistoryStore
	Profiles  domain.ProfileStore
	FactsKey  string
}

// NewAnalysisService creates an analysis service wired to the given
// collaborators.
func NewAnalysisService(logger *logrus.Logger, deps AnalysisDeps) *AnalysisService {
	return &AnalysisService{
		logger:     logger,
		classifier: NewNovaClassifier(logger),
		nutrition:  NewNutritionAggregator(logger),
		matcher:    NewAllergenMatcher(),
		composer:   NewAdviceComposer(logger),
		advice:     NewProfileAdviceEngine(),
		parser:     NewResponseParser(),
		extractor:  deps.Extractor,
		model:      deps.Model,
		storage:    deps.Storage,
		history:    deps.History,
		profiles:   deps.Profiles,
		factsKey:   deps.FactsKey,
		sessions:   make(map[string]*sessionState),
	}
}

// Analyze runs the full pipeline for one scan. The result is always
// returned to the caller; it is persisted to history only when this run is
// still the session's most recent one at commit time. A superseded run
// finishes silently without writing anything.
func (s *AnalysisService) Analyze(ctx context.Context, req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, domain.ErrEmptySession
	}

	state, generation := s.beginRun(req.SessionID)

	s.logger.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"generation": generation,
		"has_image":  req.ImageDataURI != "",
		"has_text":   req.ExtractedText != "",
	}).Info("Starting scan analysis")

	profile := s.loadProfile(ctx, req.SessionID)

	extractedText, err := s.resolveText(ctx, req)
	if err != nil {
		return nil, domain.NewAnalysisError(err)
	}

	extraction, nova, advisory, err := s.resolveModelOutputs(ctx, req, profile, extractedText)
	if err != nil {
		return nil, domain.NewAnalysisError(err)
	}

	result := s.build(profile, extractedText, extraction, nova, advisory)

	record := domain.ScanRecord{
		ID:            uuid.New().String(),
		Name:          scanName(result.FoodItems),
		Date:          result.Timestamp,
		Result:        *result,
		ExtractedText: extractedText,
	}

	committed := s.commit(ctx, state, generation, req.SessionID, record)
	if !committed {
		s.logger.WithFields(logrus.Fields{
			"session_id": req.SessionID,
			"generation": generation,
		}).Debug("Analysis superseded, result not persisted")
	}

	return &domain.AnalyzeResponse{
		ScanID:         record.ID,
		Result:         result,
		ProcessingTime: time.Since(start),
	}, nil
}

// History returns the session's recent scans, newest first, at most ten.
func (s *AnalysisService) History(ctx context.Context, sessionID string) ([]domain.ScanRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrEmptySession
	}
	records, err := s.history.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(records) > maxHistoryRecords {
		records = records[:maxHistoryRecords]
	}
	return records, nil
}

// beginRun bumps the session's generation and returns the token this run
// must present at commit time.
func (s *AnalysisService) beginRun(sessionID string) (*sessionState, uint64) {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		s.sessions[sessionID] = state
	}
	s.mu.Unlock()

	state.mu.Lock()
	defer state.mu.Unlock()
	state.generation++
	return state, state.generation
}

// commit persists the record unless the run was superseded or the caller
// went away. Read-modify-write on history happens under the session lock
// so concurrent completions cannot interleave the trim.
func (s *AnalysisService) commit(ctx context.Context, state *sessionState, generation uint64, sessionID string, record domain.ScanRecord) bool {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.generation != generation {
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	records, err := s.history.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WithError(err).Warn("Failed to read scan history, skipping persist")
		return false
	}

	records = append([]domain.ScanRecord{record}, records...)
	if len(records) > maxHistoryRecords {
		records = records[:maxHistoryRecords]
	}

	if err := s.history.Put(ctx, sessionID, records); err != nil {
		s.logger.WithError(err).Warn("Failed to persist scan history")
		return false
	}
	return true
}

// loadProfile fetches the session's medical profile; a missing profile is
// an empty one, never an error.
func (s *AnalysisService) loadProfile(ctx context.Context, sessionID string) *domain.UserProfile {
	if s.profiles == nil {
		return &domain.UserProfile{}
	}
	profile, err := s.profiles.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithError(err).Warn("Failed to load user profile, proceeding without one")
		}
		return &domain.UserProfile{}
	}
	return profile
}

// resolveText returns the label text to analyze: caller-supplied text wins,
// otherwise the vision extractor runs over the submitted image. Empty
// extraction output means "no ingredients found", not an error.
func (s *AnalysisService) resolveText(ctx context.Context, req *domain.AnalyzeRequest) (string, error) {
	if req.ExtractedText != "" {
		return req.ExtractedText, nil
	}
	if req.ImageDataURI == "" || s.extractor == nil {
		return "", nil
	}
	text, err := s.extractor.ExtractText(ctx, req.ImageDataURI)
	if err != nil {
		return "", err
	}
	return text, nil
}

// resolveModelOutputs returns the three structured shapes, preferring
// caller-supplied pre-parsed reports and falling back to live model calls.
// Ingredient extraction and NOVA classification are independent and run
// concurrently; the advisory call follows once the text is settled.
func (s *AnalysisService) resolveModelOutputs(ctx context.Context, req *domain.AnalyzeRequest, profile *domain.UserProfile, extractedText string) (*domain.ExtractionReport, *domain.NovaReport, *domain.AdvisoryReport, error) {
	extraction := req.Extraction
	nova := req.Nova
	advisory := req.Advisory

	if s.model != nil && extractedText != "" {
		var (
			wg          sync.WaitGroup
			rawExtract  string
			rawNova     string
			extractErr  error
			classifyErr error
		)

		if extraction == nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rawExtract, extractErr = s.model.ExtractIngredients(ctx, extractedText)
			}()
		}
		if nova == nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rawNova, classifyErr = s.model.ClassifyNova(ctx, extractedText)
			}()
		}
		wg.Wait()

		if extractErr != nil {
			return nil, nil, nil, extractErr
		}
		if classifyErr != nil {
			return nil, nil, nil, classifyErr
		}

		if extraction == nil && rawExtract != "" {
			if report, ok := s.parser.ParseExtraction(rawExtract); ok {
				extraction = &report
			}
		}
		if nova == nil && rawNova != "" {
			if report, ok := s.parser.ParseNova(rawNova); ok {
				nova = &report
			}
		}

		if advisory == nil {
			facts := s.fetchFacts(ctx)
			raw, err := s.model.Advise(ctx, profile.Summary(), extractedText, facts)
			if err != nil {
				return nil, nil, nil, err
			}
			report, _ := s.parser.ParseAdvisory(raw)
			advisory = &report
		}
	}

	if advisory == nil {
		report := DefaultAdvisory()
		advisory = &report
	}
	return extraction, nova, advisory, nil
}

// fetchFacts loads the trusted medical-facts text. Failure degrades to an
// advisory call without facts rather than failing the analysis.
func (s *AnalysisService) fetchFacts(ctx context.Context) string {
	if s.storage == nil || s.factsKey == "" {
		return ""
	}
	facts, err := s.storage.FetchFacts(ctx, s.factsKey)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fetch medical facts document")
		return ""
	}
	return facts
}

// build assembles the final result from whatever sources resolved.
//
// Food item precedence: the external NOVA item list when non-empty, else
// names from the extraction report, else the local keyword scan over the
// label text. Overall category: the external report's stated overall when
// valid, else the rounded item average.
func (s *AnalysisService) build(profile *domain.UserProfile, extractedText string, extraction *domain.ExtractionReport, nova *domain.NovaReport, advisory *domain.AdvisoryReport) *domain.AnalysisResult {
	var (
		items      []domain.FoodItem
		novaSource = "heuristic"
	)

	switch {
	case nova != nil && len(nova.Items) > 0:
		novaSource = "AI"
		items = make([]domain.FoodItem, 0, len(nova.Items))
		for _, item := range nova.Items {
			items = append(items, domain.FoodItem{
				Name:           item.Name,
				ConfidenceRate: item.Confidence,
				NovaCategory:   item.Category.Clamp(),
				Reason:         item.Reason,
			})
		}
	case extraction != nil && len(extraction.Ingredients) > 0:
		items = s.classifier.ClassifyAll(extraction.Ingredients)
	default:
		items = s.classifier.ClassifyAll(scanCommonIngredients(extractedText))
	}

	overall := s.classifier.OverallCategory(items)
	if nova != nil && nova.Overall.IsValid() {
		overall = nova.Overall
		novaSource = "AI"
	}

	var facts *domain.RawNutritionFacts
	if extraction != nil {
		facts = extraction.Nutrition
	}
	nutritionSummary := s.nutrition.Aggregate(facts)

	var structuredRecs []string
	hasStructuredItems := false
	notes := ""
	if extraction != nil {
		structuredRecs = extraction.Recommendations
		hasStructuredItems = len(extraction.Ingredients) > 0
		notes = extraction.Notes
	}

	profileAdvice := s.advice.AdviseAll(profile, items)

	composed := s.composer.Compose(AdviceComposerInput{
		AllergenMatches: s.matcher.FindMatches(profile.Allergies,
			allergenSearchSpaces(extractedText, advisory, structuredRecs, items, notes)),
		Advisory:           *advisory,
		ProfileAdvice:      profileAdvice,
		StructuredRecs:     structuredRecs,
		HasStructuredItems: hasStructuredItems,
		NovaSource:         novaSource,
	})

	insights := append(composed.Insights, s.nutrition.ThresholdInsights(nutritionSummary)...)
	insights = append(insights, "Overall processing level: "+overall.Describe())

	result := &domain.AnalysisResult{
		FoodItems: items,
		NovaOverview: domain.NovaOverview{
			OverallCategory: overall,
			Source:          novaSource,
		},
		Nutrition:       nutritionSummary,
		Verdict:         composed.Verdict,
		Issues:          composed.Issues,
		Insights:        dedupeStrings(insights),
		Recommendations: composed.Recommendations,
		Notes:           composed.Notes,
		Timestamp:       time.Now().UTC(),
	}
	if hasStructuredItems {
		result.IngredientInsights = items
	}
	return result
}

// allergenSearchSpaces concatenates everything an allergen could hide in:
// the raw label text, serialized advisory content, recommendation strings
// and the detected ingredient names plus notes.
func allergenSearchSpaces(extractedText string, advisory *domain.AdvisoryReport, recs []string, items []domain.FoodItem, notes string) []string {
	spaces := []string{extractedText}

	if advisory != nil {
		var sb strings.Builder
		for _, issue := range advisory.Issues {
			sb.WriteString(issue.Ingredient)
			sb.WriteString(" ")
			sb.WriteString(issue.Mechanism)
			sb.WriteString(" ")
			sb.WriteString(issue.Advice)
			sb.WriteString(" ")
		}
		sb.WriteString(advisory.Notes)
		spaces = append(spaces, sb.String())
	}

	spaces = append(spaces, strings.Join(recs, " "))

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	spaces = append(spaces, strings.Join(names, " ")+" "+notes)

	return spaces
}

// scanCommonIngredients runs the fixed keyword scan over label text,
// returning each hit capitalized, in list order, without duplicates.
// Label text that matches no known word yields a single generic item so
// the result still names something.
func scanCommonIngredients(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var found []string
	for _, ingredient := range commonIngredients {
		if strings.Contains(lower, ingredient) {
			found = append(found, strings.ToUpper(ingredient[:1])+ingredient[1:])
		}
	}
	if len(found) == 0 {
		return []string{"Extracted Ingredients"}
	}
	return found
}

// scanName picks the history display name for a scan.
func scanName(items []domain.FoodItem) string {
	if len(items) == 0 {
		return "Unknown Food"
	}
	return items[0].Name
}
