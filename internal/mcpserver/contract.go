package mcpserver

// FilterContract explains to LLM consumers how filter values are matched.
const FilterContract = `# timeshift Filter Contract

A filter is a property name mapped to a value. Names must match a property of the
database exactly (case-sensitive). When several filters are given, a record must
match all of them.

## Matching by property type

| type         | match                                    | value          |
|--------------|------------------------------------------|----------------|
| select       | option equals value                      | text           |
| multi_select | one of the options equals value          | text           |
| people       | contains the user id                     | user id        |
| title        | text contains value                      | text           |
| rich_text    | text contains value                      | text           |
| formula      | string result contains value             | text           |
| number       | equals value                             | number         |
| checkbox     | equals value                             | true or false  |

## Rules

1. Unknown property names are ignored and logged; the run continues.
2. Properties of any other type (date, relation, rollup, ...) are ignored.
3. A number or checkbox value that cannot be read as such is ignored.
4. If every filter is ignored, the run covers the whole database.
5. Records whose start is before start_date are never modified.
6. Hours are applied to both ends of the date range. An empty end stays empty.
7. Times are read and written without a time zone; the wall clock is shifted as is.
8. Running the same adjustment twice shifts twice.
`
