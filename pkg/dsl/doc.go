/*
Package dsl provides a Go DSL for declaring guidebook leaves programmatically.

Leaves normally come from YAML or JSON files. The builder is an alternative for
generated guidebooks and tests: scopes carry the nesting path, so leaves declared
through the same scope land in the same choice part, import or wizard step.

Example usage:

	b := dsl.New()

	b.Leaf("update").Shell("apt-get update")

	os := b.Import("setup", "Setup")
	os.Choice("os", 0, "Linux").Leaf("linux").Shell("apt-get install -y git")
	os.Choice("os", 1, "macOS").Leaf("mac").Shell("brew install git").Validate("command -v git")

	b.Finally("teardown", "setup").Leaf("clean").Shell("rm -rf /tmp/setup")

	loader, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	engine, err := guidebook.New("", guidebook.WithLoader(loader))
*/
package dsl
