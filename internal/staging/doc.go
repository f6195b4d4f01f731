// Package staging holds unconfirmed scan results between recognition
// and commit. A Session pairs a staging collection with its target:
// matched scans land in staging, the user reviews and optionally
// undoes the latest change, and Commit replays the staged stock into
// the target before clearing staging. Both collections persist as
// JSON files so a session survives across program invocations.
package staging
