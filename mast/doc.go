/*
Package mast provides an authenticated, ordered map from byte keys to
byte values, implemented as a Merkle Search Tree (MST).

The tree is the storage engine underneath the merk adapter: it applies
sorted batches atomically, keeps a small unauthenticated side channel
of auxiliary entries, produces Merkle proofs for point queries, and
persists its content-addressed nodes through a pluggable Backend.

What are MSTs

MSTs are described in "Merkle Search Trees: Efficient State-Based
CRDTs in Open Networks", by Alex Auvolat and François Taïani, 2019
(https://hal.inria.fr/hal-02303490/document).

MSTs are similar to persistent B-Trees, except an element's layer
(distance to leaves) is deterministically calculated from a hash of
its key, so there is no rebalancing, and two trees holding the same
entries converge to the same shape no matter what order the entries
were written in. Replicas that apply the same writes therefore agree
on the root hash.

Versions

Nodes are never modified once built; every write copies the path from
the root to the changed entry. An Iterator therefore reads a fixed
version of the tree even while the tree keeps changing underneath it.

Durability

Apply changes only the in-memory version. Flush writes every new node
to the Backend and then stores a checkpoint naming the new root, so a
crash between the two leaves the previous checkpoint intact.
*/
package mast
