package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/John-Robertt/imgcrawl/internal/infra/httpx"
)

// Attr 是某个匹配元素上的一个属性读取结果。
// Present=false 表示元素存在但没有该属性（与空字符串区分）。
type Attr struct {
	Selector string
	Name     string
	Index    int
	Value    string
	Present  bool
}

// Require 返回属性值；属性缺失时返回 *MissingAttrError。
func (a Attr) Require() (string, error) {
	if !a.Present {
		return "", &MissingAttrError{Selector: a.Selector, Attr: a.Name, Index: a.Index}
	}
	return a.Value, nil
}

// MissingAttrError 表示选择器命中的元素缺少目标属性。
// 不在解析阶段报错：由消费该属性的任务失败时返回。
type MissingAttrError struct {
	Selector string
	Attr     string
	Index    int
}

func (e *MissingAttrError) Error() string {
	return fmt.Sprintf("元素缺少属性：selector=%q attr=%q index=%d", e.Selector, e.Attr, e.Index)
}

// ParseHTML 按 Content-Type（为空时按内容嗅探）解码后解析 HTML。
func ParseHTML(r io.Reader, contentType string) (*goquery.Document, error) {
	ur, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(ur)
}

// SelectAttr 返回 selector 命中的每个元素上 name 属性的读取结果（文档顺序）。
// 选择器无命中时返回空切片，不视为错误。
func SelectAttr(doc *goquery.Document, selector, name string) []Attr {
	if doc == nil {
		return nil
	}
	sel := doc.Find(selector)
	out := make([]Attr, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		v, ok := s.Attr(name)
		out = append(out, Attr{
			Selector: selector,
			Name:     name,
			Index:    i,
			Value:    v,
			Present:  ok,
		})
	})
	return out
}

// FetchDocument GET 页面并解析为 goquery 文档；响应体在返回前关闭。
func FetchDocument(ctx context.Context, c *http.Client, u string, strict bool) (*goquery.Document, error) {
	resp, err := httpx.Get(ctx, c, u, strict)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := ParseHTML(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败：%s：%w", u, err)
	}
	return doc, nil
}
