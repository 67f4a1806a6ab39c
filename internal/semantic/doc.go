// Package semantic turns free-form task descriptions and symbol names into
// comparable terms.
//
// Three layers are combined when scoring a candidate name against a task:
//
//  1. Exact word match after identifier splitting (camelCase, snake_case,
//     kebab-case and acronym boundaries).
//  2. Stem match using the Porter2 algorithm, so "validation" matches
//     "ValidateOrder".
//  3. Fuzzy match using Jaro-Winkler similarity, so "recieve" still finds
//     "ReceiveMessage".
//
// The same fuzzy matcher produces did-you-mean suggestions for lookups that
// miss.
package semantic
