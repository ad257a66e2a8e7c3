package txn

import "time"

// ResolveTimeout bounds how long a scan that meets a soft-lock record
// waits for the cross-partition write it guards to settle, per the
// concurrency model's "bounded wait on resume-task futures" rule.
const ResolveTimeout = 5 * time.Second

// ResumeLock blocks until lockKey's cross-partition write resolves (or
// ResolveTimeout elapses) and reports whether a synthetic edge row
// should be yielded in its place. Implementations that collapse the
// resume into the scan itself are permitted by running the real
// partition-to-partition RPC on a goroutine and calling Resolve on this
// broker when it completes; ResumeLock only prescribes the waiting
// side's contract.
func (b *SoftLockBroker) ResumeLock(lockKey string) (value []byte, yield bool, err error) {
	res, ok := b.Await(lockKey, ResolveTimeout)
	if !ok {
		return nil, false, nil
	}
	if res.Err != nil {
		return nil, false, res.Err
	}
	if !res.Committed || len(res.Value) == 0 {
		return nil, false, nil
	}
	return res.Value, true, nil
}
