package prompt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Prompt Template Builder
// Pure functions that assemble request payloads from user-supplied fields.
// No I/O, no side effects — every builder is deterministic.
// ---------------------------------------------------------------------------

// SceneSeconds is the fixed length of one generated clip. The downstream
// video model only accepts 8-second units, so scripts are divided into
// ceil(duration/8) scenes.
const SceneSeconds = 8

var (
	minutePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:phút|minute|min|m)`)
	secondPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:giây|second|sec|s)`)
	barePattern   = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// ParseDurationSeconds extracts a total-seconds value from free text.
// It accepts minute markers (localized: "phút", "minute", "min", "m"),
// second markers ("giây", "second", "sec", "s"), both combined, or a bare
// number treated as seconds. Returns ok=false when nothing usable is found
// or the total is zero or negative.
func ParseDurationSeconds(durationStr string) (int, bool) {
	trimmed := strings.TrimSpace(durationStr)
	if trimmed == "" {
		return 0, false
	}

	total := 0.0
	if m := minutePattern.FindStringSubmatch(trimmed); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		total += v * 60
	}
	if m := secondPattern.FindStringSubmatch(trimmed); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		total += v
	}
	if total == 0 && barePattern.MatchString(trimmed) {
		total, _ = strconv.ParseFloat(trimmed, 64)
	}

	if total <= 0 {
		return 0, false
	}
	// Fractional totals round up so sub-second inputs stay specified
	// instead of truncating to zero.
	return int(math.Ceil(total)), true
}

// SceneCount returns how many fixed-length scenes a video of the given
// duration needs.
func SceneCount(totalSeconds int) int {
	if totalSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalSeconds) / float64(SceneSeconds)))
}

// ---------------------------------------------------------------------------
// Script writer
// ---------------------------------------------------------------------------

// ScriptSystemInstruction is the system prompt for the script writer. The
// model plans characters and locations internally first, then emits one
// structured prompt object per scene so a downstream video model renders
// consistent clips.
const ScriptSystemInstruction = `You are an expert scriptwriter and AI prompt engineer. Your task is to transform a user's simple idea into a detailed script. For each scene, you must generate a highly structured, detailed JSON prompt object designed to guide another AI in creating a consistent video clip.

INTERNAL MONOLOGUE & CONSISTENCY PLAN (CRITICAL):
Before generating the JSON output, you MUST first create an internal plan. This plan will NOT be part of the final output.
1. Define Core Entities: create a detailed entity sheet for all main characters and key locations. For characters, specify species, gender, age, clothing, hair, facial features and unique marks. For locations, describe the key elements, atmosphere, lighting and time of day.
2. Reference the Plan: for every scene you generate, refer back to this entity sheet and use the exact descriptive details to populate the fields of the structured prompt. This is the key to consistency.

Each scene description should immediately present a high-climax visual or a pivotal moment. The narrative should focus on impactful, visually striking events directly. Every clip must be suitable for an 8-second video unit.`

// BuildScriptUserPrompt renders the user turn for the script writer. When the
// duration text parses, a hard scene-count requirement is appended; otherwise
// the model chooses the scene count itself.
func BuildScriptUserPrompt(idea, duration string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video idea: %s", strings.TrimSpace(idea))

	if totalSeconds, ok := ParseDurationSeconds(duration); ok {
		required := SceneCount(totalSeconds)
		fmt.Fprintf(&b, "\n\nRequirement: The final video should be approximately %s (%d seconds). To achieve this, you MUST generate exactly %d scenes, as each scene will become an %d-second video clip.",
			strings.TrimSpace(duration), totalSeconds, required, SceneSeconds)
	}

	return b.String()
}

// SceneSchema describes the strict output shape for the script writer: an
// array of scenes, each with a number, a localized description and a nested
// prompt-engineering object for the downstream video model. The map mirrors
// the provider's JSON-schema dialect.
func SceneSchema() map[string]any {
	return map[string]any{
		"type": "ARRAY",
		"items": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"scene_number": map[string]any{"type": "INTEGER"},
				"description": map[string]any{
					"type":        "STRING",
					"description": "Localized narration of what happens in this scene.",
				},
				"video_prompt": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"objective": map[string]any{
							"type":        "STRING",
							"description": "Primary goal for the video generator for this scene, e.g. a photorealistic 8-second 4K cinematic clip.",
						},
						"scene_description": map[string]any{"type": "STRING"},
						"characters":        map[string]any{"type": "STRING"},
						"setting":           map[string]any{"type": "STRING"},
						"camera":            map[string]any{"type": "STRING"},
						"lighting":          map[string]any{"type": "STRING"},
						"constraints": map[string]any{
							"type":        "STRING",
							"description": "Hard constraints, e.g. the clip must be exactly 8 seconds long.",
						},
					},
					"required": []string{"objective", "scene_description", "characters", "setting"},
				},
			},
			"required": []string{"scene_number", "description", "video_prompt"},
		},
	}
}

// ---------------------------------------------------------------------------
// SEO metadata
// ---------------------------------------------------------------------------

func BuildSEOPrompt(idea, platform string) string {
	if platform == "" {
		platform = "youtube"
	}
	return fmt.Sprintf(`You are a %s SEO specialist. For the video idea below, produce metadata that maximizes search visibility and click-through:
- title: a compelling title under 70 characters
- description: 2-4 sentences, keyword-rich but natural
- tags: 10-15 single keywords or short phrases
- hashtags: 3-5 hashtags including the leading #

Video idea: %s`, platform, strings.TrimSpace(idea))
}

// SEOSchema is the strict output shape for the SEO metadata tool.
func SEOSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title":       map[string]any{"type": "STRING"},
			"description": map[string]any{"type": "STRING"},
			"tags":        map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
			"hashtags":    map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		},
		"required": []string{"title", "description", "tags", "hashtags"},
	}
}

// ---------------------------------------------------------------------------
// Translation
// ---------------------------------------------------------------------------

func BuildTranslationPrompt(text, targetLanguage string) string {
	return fmt.Sprintf(`Translate the following text into the language with BCP 47 tag "%s". Preserve meaning, tone and formatting. Return ONLY the translated text with no commentary.

%s`, targetLanguage, text)
}

// ---------------------------------------------------------------------------
// Images and thumbnails
// ---------------------------------------------------------------------------

func BuildThumbnailPrompt(idea, overlayText, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a single high-resolution video thumbnail for: %s.", strings.TrimSpace(idea))
	if style != "" {
		fmt.Fprintf(&b, " Visual style: %s.", style)
	}
	if overlayText != "" {
		fmt.Fprintf(&b, " Render the text %q prominently in a large, bold, highly legible font with strong contrast against the background.", overlayText)
	}
	b.WriteString(" Composition must be eye-catching at small sizes, with a clear focal subject and vivid color grading. No watermarks, no channel logos.")
	return b.String()
}

// ---------------------------------------------------------------------------
// Affiliate promotional images
// ---------------------------------------------------------------------------

// BuildAffiliatePrompt renders the compositing instruction for one affiliate
// promo image. Two reference images accompany it: the person first, the
// product second. seed varies pose/outfit/background between copies.
func BuildAffiliatePrompt(productInfo, aspectRatio string, seed int) string {
	var b strings.Builder
	b.WriteString(`Create a single, high-resolution, photorealistic promotional image.
- Person: the person from the first image must be featured. Their facial features and appearance must be preserved exactly.
- Product: the product from the second image must be featured. The product's appearance, branding, color, and shape MUST be preserved with 100% fidelity. Do not alter the original product in any way.
- Realistic scaling: the product's size MUST be realistic and proportional to the person, as it would be in real life. Do not enlarge the product for emphasis.
- Interaction: the person should be interacting with or presenting the product in a natural, engaging way.
- Style: high-end and polished, suitable for a professional advertisement.
- Composition: a full-body shot of the model showing the outfit and product in context.`)
	if productInfo != "" {
		fmt.Fprintf(&b, "\n- Product details: %s", productInfo)
	}
	fmt.Fprintf(&b, "\n- Variation: seed value %d is provided to make this image unique. Vary the outfit, background, pose, lighting, and camera angle relative to any other generated image.", seed)
	fmt.Fprintf(&b, "\n- Output aspect ratio MUST be exactly %s. No exceptions.", aspectRatio)
	return b.String()
}

// ---------------------------------------------------------------------------
// Narrated stories
// ---------------------------------------------------------------------------

func BuildStoryPrompt(topic, idea string, characterCount int) string {
	if characterCount <= 0 {
		characterCount = 1500
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write a complete narrated story on the theme: %s.", strings.TrimSpace(topic))
	if idea != "" {
		fmt.Fprintf(&b, " Core idea: %s.", strings.TrimSpace(idea))
	}
	fmt.Fprintf(&b, " Target length: about %d characters. Write flowing prose meant to be read aloud by a narrator — no headings, no scene markers, no stage directions. Build tension steadily and end with a memorable final line.", characterCount)
	return b.String()
}

// BuildSpeechPrompt wraps a script in its spoken-delivery directive for the
// TTS call, e.g. `Read this in a slow, eerie voice: "..."`.
func BuildSpeechPrompt(voiceStyle, script string) string {
	if voiceStyle == "" {
		voiceStyle = "Read this aloud in a natural, engaging narrator voice"
	}
	return fmt.Sprintf("%s: %q", voiceStyle, script)
}
