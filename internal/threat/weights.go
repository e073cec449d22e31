package threat

// FeedWeights are the compile-time feed-reliability weights used by
// Score's feed_reliability term. Changing them is a deliberate
// calibration event, not a runtime-configurable value.
var FeedWeights = map[string]float64{
	"firehol_level1":    0.9,
	"firehol_level2":    0.7,
	"firehol_level3":    0.5,
	"abusech_threatfox": 0.85,
	"abusech_urlhaus":   0.8,
	"alienvault_otx":    0.75,
	"cins_army":         0.7,
}

// TypeWeights are the compile-time indicator-severity weights used by
// Score's severity term.
var TypeWeights = map[string]float64{
	"malware_c2":       0.95,
	"botnet_c2":        0.9,
	"botnet":           0.85,
	"apt":              0.95,
	"malware_delivery": 0.8,
	"scanner":          0.5,
	"malicious":        0.7,
	"suspicious":       0.4,
	"spam":             0.3,
}

// defaultWeight is substituted for any feed or type name absent from
// the tables above.
const defaultWeight = 0.5
