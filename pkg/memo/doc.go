/*
Package memo holds the per-session memoization context of a guidebook run.

A Memos value is created once per run and passed explicitly to the optimizer,
the status model and the runtime. It records:

  - the status of leaves, validation commands and idempotency groups;
  - the resolved options of dynamic expansions;
  - the environment captured from leaves;
  - the subprocesses still running and the finally tasks still pending.

Concurrent lookups of the same key are coalesced so that a validation or an
expansion command runs at most once at a time.
*/
package memo
