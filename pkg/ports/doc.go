/*
Package ports defines the driven ports (interfaces) of the guidebook engine.

These interfaces decouple the compiler, optimizer and runtime from document
ingestion, process spawning, decision presentation and profile persistence.

# Key Interfaces

  - LeafLoader: supplies the flat list of annotated leaves.
  - Executor: spawns subprocesses for leaves and validation commands.
  - Presenter: asks the user to answer a decision.
  - ProfileStore: persists ChoiceState profiles.
  - DistributedLocker: coordinates profile access across processes.
*/
package ports
