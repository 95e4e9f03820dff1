package mcpserver

// LinkFormatContract describes the durable-link conventions that LLM
// consumers should follow when editing documents in a Raido-managed tree.
const LinkFormatContract = `# Raido Durable Link Contract

Raido gives every document in the tree a permanent identifier so the tree
can be reorganized without breaking links. Follow these rules when reading
or editing documents.

## Document identity

` + "```" + `markdown
---
title: Routing guide                # other fields belong to the document
id: how-to-routing                  # REQUIRED once assigned. NEVER edit or remove
---
` + "```" + `

1. **The ` + "`" + `id` + "`" + ` field is write-once.** Raido assigns it during a prepare run;
   never change, remove, or copy it to another document. Two documents with
   the same id is a fatal collision.
2. **Keep every other frontmatter field exactly as found.** Raido preserves
   unrelated fields and their order; so should you.
3. Identifiers are lowercase, kebab-case, derived from the document's
   original path (e.g. ` + "`" + `how-to/routing.md` + "`" + ` → ` + "`" + `how-to-routing` + "`" + `).

## Links between documents

- Durable form (preferred): ` + "`" + `[link text]({{ internal_link('how-to-routing') }})` + "`" + `.
  It survives any reorganization; the build resolves it to a relative path.
- Relative form: ` + "`" + `[link text](../how-to/routing.md)` + "`" + `. Valid, but breaks when
  either document moves. The ` + "`" + `convert` + "`" + ` run upgrades these to durable form.
- External URLs, absolute paths, and non-markdown resources are left alone;
  do not wrap them in the macro.

## Moving documents

Move or rename freely; the id travels with the document. After moving, a
build run diffs against the stored snapshot and emits old-to-new redirect
rules, so nothing needs hand-editing.
`
