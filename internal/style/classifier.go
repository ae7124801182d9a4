// Package style estimates a learner's preferred explanation style from their
// messages. Detection is rule-based phrase matching, not a learned model.
package style

import "strings"

// Dimension is one learning-style axis.
type Dimension string

const (
	Visual       Dimension = "visual"
	Auditory     Dimension = "auditory"
	Kinesthetic  Dimension = "kinesthetic"
	Reading      Dimension = "reading"
	Undetermined Dimension = "undetermined"
)

// Dimensions lists the four scored axes in stable order.
var Dimensions = []Dimension{Visual, Auditory, Kinesthetic, Reading}

// dominantThreshold is the minimum confidence before a dimension is reported
// as dominant.
const dominantThreshold = 0.3

var indicatorPhrases = map[Dimension][]string{
	Visual: {
		"show me", "draw", "diagram", "picture", "visualize", "chart",
		"graph", "see it", "can i see", "looks like", "image", "sketch",
		"illustrate", "color", "visually",
	},
	Auditory: {
		"explain", "tell me", "talk me through", "sounds like", "say it",
		"hear", "listen", "out loud", "walk me through", "describe",
		"repeat that", "pronounce",
	},
	Kinesthetic: {
		"try it", "hands on", "hands-on", "practice", "exercise",
		"let me do", "myself", "step by step", "interactive", "build",
		"experiment", "work through", "do it",
	},
	Reading: {
		"write", "read", "notes", "summary", "text", "article", "list",
		"bullet points", "written", "definition", "reference", "document",
	},
}

// Profile maps each dimension to a confidence in [0,1]. Confidences sum to 1
// once any signal has been observed, and are all zero before that.
type Profile map[Dimension]float64

// Classifier accumulates per-dimension raw counts across one conversation.
// Counts are never decayed: early signal persists but can be diluted by
// contradicting later signal. Not safe for concurrent use; turn processing on
// one conversation is serialized by the caller.
type Classifier struct {
	counts map[Dimension]int
	total  int
}

// NewClassifier returns an empty classifier.
func NewClassifier() *Classifier {
	return &Classifier{counts: make(map[Dimension]int)}
}

// Observe matches the text against the indicator-phrase tables and increments
// the raw counter of every dimension with at least one hit.
func (c *Classifier) Observe(text string) {
	lower := strings.ToLower(text)
	for _, d := range Dimensions {
		hits := 0
		for _, phrase := range indicatorPhrases[d] {
			if strings.Contains(lower, phrase) {
				hits++
			}
		}
		if hits > 0 {
			c.counts[d] += hits
			c.total += hits
		}
	}
}

// Confidences returns the current profile. With no observed signal all
// confidences are zero.
func (c *Classifier) Confidences() Profile {
	p := make(Profile, len(Dimensions))
	for _, d := range Dimensions {
		if c.total == 0 {
			p[d] = 0
			continue
		}
		p[d] = float64(c.counts[d]) / float64(c.total)
	}
	return p
}

// DominantStyle returns the max-confidence dimension when its confidence
// reaches the threshold, else Undetermined.
func (c *Classifier) DominantStyle() Dimension {
	best := Undetermined
	bestConf := 0.0
	for _, d := range Dimensions {
		conf := 0.0
		if c.total > 0 {
			conf = float64(c.counts[d]) / float64(c.total)
		}
		if conf > bestConf {
			best = d
			bestConf = conf
		}
	}
	if bestConf < dominantThreshold {
		return Undetermined
	}
	return best
}

// Observed reports whether any style signal has been recorded yet.
func (c *Classifier) Observed() bool { return c.total > 0 }

// Reset discards all accumulated counts. This is the only way signal decays.
func (c *Classifier) Reset() {
	c.counts = make(map[Dimension]int)
	c.total = 0
}

// Restore seeds the classifier from a persisted profile by converting
// confidences back into pseudo-counts. Used when an opt-in profile store is
// configured.
func (c *Classifier) Restore(p Profile) {
	const scale = 100
	c.Reset()
	for _, d := range Dimensions {
		n := int(p[d] * scale)
		if n > 0 {
			c.counts[d] = n
			c.total += n
		}
	}
}
