/*
Package domain contains the core models of the guidebook engine.

It is kept pure and free of I/O. Adapters and the runtime depend on it,
never the other way around.

# Key Entities

  - Node: the decision tree sum type (Leaf, Sequence, Parallel, Choice, SubTask, TitledSteps).
  - Nesting: the ancestor descriptors attached to each leaf before compilation.
  - ChoiceState: the persisted answers of a profile, with rejection tracking.
  - Status: the execution status algebra (Intersect, Union).
  - LifecycleHooks: callbacks for observability.
*/
package domain
