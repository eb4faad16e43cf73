package grant

// Record is an authorization record keyed by (Hash, S3Key). Records are
// created outside of this service.
type Record struct {
	Hash    string `dynamodbav:"Hash" json:"hash"`
	S3Key   string `dynamodbav:"S3Key" json:"s3_key"`
	Expires int64  `dynamodbav:"Expires" json:"expires"`
	// OneTime is nil when the attribute is missing from the stored item.
	OneTime *bool `dynamodbav:"OneTime,omitempty" json:"one_time,omitempty"`
}

// IsOneTime reports whether the record permits a single retrieval. Records
// without the flag are treated as one-time.
func (r Record) IsOneTime() bool {
	if r.OneTime == nil {
		return true
	}
	return *r.OneTime
}

// ValidAt reports whether the record has not expired at the given Unix time.
func (r Record) ValidAt(epoch int64) bool {
	return r.Expires > epoch
}

// Decision is the result of looking up a grant.
type Decision struct {
	Authorized bool
	// OneTime is only meaningful when Authorized is true.
	OneTime bool
	// Epoch is the Unix time the decision was made at. Downstream expiry of a
	// consumed one-time grant uses this value.
	Epoch int64
}

// Decide builds a decision from the records that matched a lookup made at
// epoch. The first record determines the one-time flag.
func Decide(records []Record, epoch int64) Decision {
	if len(records) == 0 {
		return Decision{Epoch: epoch}
	}
	return Decision{Authorized: true, OneTime: records[0].IsOneTime(), Epoch: epoch}
}
