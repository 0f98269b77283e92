// Package router classifies one user turn into exactly one capability path.
// Classification is coarse and heuristic: dataset presence first, then
// keyword sets for statistical visualization and general code requests.
package router
