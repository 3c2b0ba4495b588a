package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-sections/pkg/interfaces"
)

const (
	snippetScopeKey = "__snippets"
	renderDepthKey  = "__render_depth"
	maxRenderDepth  = 8
)

var errRenderDepth = errors.New("render: snippet nesting too deep")

var builtinsOnce sync.Once

// registerBuiltins installs the section tags and filters into pongo2's
// process-wide registries.
func registerBuiltins() {
	builtinsOnce.Do(func() {
		registerTag("schema", parseSchemaTag)
		registerTag("style", parseWrapTag("style", "style"))
		registerTag("stylesheet", parseWrapTag("stylesheet", "style"))
		registerTag("javascript", parseWrapTag("javascript", "script"))
		registerTag("render", parseSnippetTag("render"))
		registerTag("include", parseSnippetTag("include"))

		registerFilter("asset_url", filterAssetURL)
		registerFilter("img_url", filterImageURL)
		registerFilter("money", filterMoney)
		registerFilter("json", filterJSON)
		registerFilter("markdown", filterMarkdown)
		registerFilter("default", filterDefault)
	})
}

func registerTag(name string, parser pongo2.TagParser) {
	if err := pongo2.RegisterTag(name, parser); err != nil {
		if err := pongo2.ReplaceTag(name, parser); err != nil {
			panic(fmt.Sprintf("render: register tag %s: %v", name, err))
		}
	}
}

func registerFilter(name string, fn pongo2.FilterFunction) {
	if pongo2.FilterExists(name) {
		if err := pongo2.ReplaceFilter(name, fn); err != nil {
			panic(fmt.Sprintf("render: replace filter %s: %v", name, err))
		}
		return
	}
	if err := pongo2.RegisterFilter(name, fn); err != nil {
		panic(fmt.Sprintf("render: register filter %s: %v", name, err))
	}
}

type schemaNode struct{}

func (schemaNode) Execute(*pongo2.ExecutionContext, pongo2.TemplateWriter) *pongo2.Error {
	return nil
}

// rawBody reads the encoded body protectRawBodies moved into the arguments.
func rawBody(name string, arguments *pongo2.Parser) (string, *pongo2.Error) {
	token := arguments.MatchType(pongo2.TokenString)
	if token == nil || arguments.Remaining() > 0 {
		return "", arguments.Error(fmt.Sprintf("%s tag is not closed by end%s", name, name), nil)
	}
	body, err := decodeRawBody(token.Val)
	if err != nil {
		return "", arguments.Error(fmt.Sprintf("%s tag body is malformed", name), nil)
	}
	return body, nil
}

// parseSchemaTag consumes {% schema %}...{% endschema %} and renders nothing.
func parseSchemaTag(_ *pongo2.Parser, _ *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
	if _, err := rawBody("schema", arguments); err != nil {
		return nil, err
	}
	return schemaNode{}, nil
}

// wrapNode writes its body verbatim inside element.
type wrapNode struct {
	element string
	body    string
}

func (n *wrapNode) Execute(_ *pongo2.ExecutionContext, writer pongo2.TemplateWriter) *pongo2.Error {
	if _, err := writer.WriteString("<" + n.element + ">" + n.body + "</" + n.element + ">"); err != nil {
		return &pongo2.Error{Sender: "tag:" + n.element, OrigError: err}
	}
	return nil
}

func parseWrapTag(name, element string) pongo2.TagParser {
	return func(_ *pongo2.Parser, _ *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
		body, err := rawBody(name, arguments)
		if err != nil {
			return nil, err
		}
		return &wrapNode{element: element, body: body}, nil
	}
}

// snippetNode includes a snippet resolved when the template executes:
//
//	{% render "card" %}
//	{% render "card" with title=product.title, size=2 %}
//	{% include "footer" if_exists with year=2024 only %}
//
// Unknown snippets render as empty output.
type snippetNode struct {
	tag   string
	token *pongo2.Token
	key   pongo2.IEvaluator
	with  map[string]pongo2.IEvaluator
	only  bool
}

func (n *snippetNode) Execute(ctx *pongo2.ExecutionContext, writer pongo2.TemplateWriter) *pongo2.Error {
	scope, _ := ctx.Public[snippetScopeKey].(*snippetScope)
	if scope == nil {
		return nil
	}
	keyValue, perr := n.key.Evaluate(ctx)
	if perr != nil {
		return perr
	}

	data := pongo2.Context{}
	if !n.only {
		data.Update(ctx.Public)
		data.Update(ctx.Private)
	}
	data[snippetScopeKey] = scope
	if depth, ok := ctx.Public[renderDepthKey]; ok {
		data[renderDepthKey] = depth
	}
	for name, expr := range n.with {
		value, perr := expr.Evaluate(ctx)
		if perr != nil {
			return perr
		}
		data[name] = value.Interface()
	}

	out, err := scope.render(keyValue.String(), data)
	if err != nil {
		return &pongo2.Error{Sender: "tag:" + n.tag, Token: n.token, OrigError: err}
	}
	if _, err := writer.WriteString(out); err != nil {
		return &pongo2.Error{Sender: "tag:" + n.tag, Token: n.token, OrigError: err}
	}
	return nil
}

func parseSnippetTag(tag string) pongo2.TagParser {
	return func(_ *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
		node := &snippetNode{tag: tag, token: start, with: map[string]pongo2.IEvaluator{}}

		key, err := arguments.ParseExpression()
		if err != nil {
			return nil, err
		}
		node.key = key

		if tag == "include" {
			// Missing snippets are always empty, so if_exists is accepted and ignored.
			arguments.Match(pongo2.TokenIdentifier, "if_exists")
		}

		if arguments.Match(pongo2.TokenIdentifier, "with") != nil {
			for arguments.Remaining() > 0 {
				if arguments.Peek(pongo2.TokenIdentifier, "only") != nil {
					break
				}
				name := arguments.MatchType(pongo2.TokenIdentifier)
				if name == nil {
					return nil, arguments.Error(fmt.Sprintf("expected a variable name in %s arguments", tag), nil)
				}
				if arguments.Match(pongo2.TokenSymbol, "=") == nil {
					return nil, arguments.Error(fmt.Sprintf("expected '=' after %s argument name", tag), nil)
				}
				value, err := arguments.ParseExpression()
				if err != nil {
					return nil, err
				}
				node.with[name.Val] = value
				arguments.Match(pongo2.TokenSymbol, ",")
			}
		}

		if tag == "include" && arguments.Match(pongo2.TokenIdentifier, "only") != nil {
			node.only = true
		}
		if arguments.Remaining() > 0 {
			return nil, arguments.Error(fmt.Sprintf("malformed %s tag", tag), nil)
		}
		return node, nil
	}
}

// snippetScope resolves render and include tags for one evaluation: template-local
// snippets first, then the tenant store.
type snippetScope struct {
	ctx         context.Context
	interpreter *Interpreter
	local       map[string]string
	resolver    interfaces.SnippetResolver
	logger      interfaces.Logger
}

func (s *snippetScope) lookup(key string) (string, bool) {
	if source, ok := s.local[key]; ok {
		return source, true
	}
	if s.resolver == nil {
		return "", false
	}
	return s.resolver.Resolve(s.ctx, s.interpreter.TenantID(), key)
}

func (s *snippetScope) render(key string, data pongo2.Context) (string, error) {
	depth, _ := data[renderDepthKey].(int)
	if depth >= maxRenderDepth {
		return "", fmt.Errorf("%w: %s", errRenderDepth, key)
	}
	if err := s.ctx.Err(); err != nil {
		return "", err
	}

	source, ok := s.lookup(key)
	if !ok {
		s.logger.Debug("render.snippet.missing", "key", key)
		return "", nil
	}
	tpl, err := s.interpreter.Compile(source)
	if err != nil {
		return "", fmt.Errorf("snippet %q: %w", key, err)
	}
	data[renderDepthKey] = depth + 1
	out, err := tpl.Execute(data)
	if err != nil {
		return "", fmt.Errorf("snippet %q: %w", key, err)
	}
	return out, nil
}
