// Package rules provides the built-in lint rules.
//
// Importing the package registers every rule with lint.DefaultRegistry.
// Rules are referenced in configuration by name:
//
//	rules:
//	  no-select-star: error
//	  table-naming-convention: warning
//	  require-primary-key: on
//	  column-naming-convention: [info, {ignore: [ID]}]
//
// Rules marked recommended make up RecommendedConfig.
package rules
