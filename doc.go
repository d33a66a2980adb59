/*
Package docmodel implements change-tracking models of schema-less documents
(in this case, MongoDB-style BSON documents).

A document is mirrored by a tree of nodes. Mutations mark parts of the tree
dirty, and a flush turns the dirty parts into a minimal ordered list of
set-at-path and unset-at-path operations instead of rewriting the document.

We implement:

1. Fixed-shape models (RootModel, ObjectModel, MapValueModel), embedded by
application structs that declare their fields with ScalarField and NodeField.

2. Scalar maps (ScalarMap), dynamically keyed sub-documents of scalar values.

3. Model maps (ModelMap), dynamically keyed sub-documents whose values are
models themselves.

4. Whole-array lists (ListModel), written as one value whenever they change.

# Technical Details

**Paths.**
Every node has a dot-delimited path resolved one segment per tree level. The
root sits at the empty path. A value removed from a map is detached and no
longer has a path.

**Dirty state.**
Keyed containers keep two disjoint insertion-ordered key sets, updated and
removed. Every Put or Remove moves the key out of the opposite set. Objects
keep a bit per scalar field and ask composite fields for their own state.
Lists keep a single flag.

**Emission order.**
Objects emit in field declaration order. Maps emit updated keys in the order
they were first updated, then one unset per removed key.

**Loads.**
LoadBSON and LoadPlain replace the contents of a subtree and leave it clean.
An entry that cannot be converted is logged at warning level and skipped;
loads never fail.

**Flush cycle.**
Call AppendUpdates (or RootModel.ToUpdates) once, ship the operations, then
Reset. Nothing here is synchronized: the whole cycle must not overlap with
mutations of the same tree.
*/
package docmodel
