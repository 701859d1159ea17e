package embed

import (
	"fmt"
	"strings"
)

// LoaderJS generates the web-component loader served at /embed.js.
// The custom element mirrors its attributes into an iframe pointing at
// the given base URL, so third-party pages never hard-code our URLs.
func LoaderJS(baseURL string) []byte {
	js := fmt.Sprintf(`(function () {
  'use strict';
  var BASE = %q;
  // Element attribute -> embed query parameter. The widget style rides
  // on a "mode" attribute because "style" is taken by CSS.
  var PARAMS = [['mode', 'style'], ['theme', 'theme'], ['webcam', 'webcam'],
    ['cams', 'cams'], ['target', 'target'], ['units', 'units'], ['temp', 'temp']];

  if (window.customElements && !customElements.get('aviationwx-widget')) {
    customElements.define('aviationwx-widget', class extends HTMLElement {
      connectedCallback() {
        var airport = (this.getAttribute('airport') || '').toLowerCase();
        if (!airport) { return; }

        var qs = [];
        for (var i = 0; i < PARAMS.length; i++) {
          var v = this.getAttribute(PARAMS[i][0]);
          if (v !== null && v !== '') {
            qs.push(PARAMS[i][1] + '=' + encodeURIComponent(v));
          }
        }

        var frame = document.createElement('iframe');
        frame.src = BASE + '/embed/' + encodeURIComponent(airport) + (qs.length ? '?' + qs.join('&') : '');
        frame.width = this.getAttribute('width') || '%d';
        frame.height = this.getAttribute('height') || (this.getAttribute('mode') === 'compact' ? '%d' : '%d');
        frame.loading = 'lazy';
        frame.title = airport.toUpperCase() + ' weather';
        frame.style.border = '0';
        frame.style.borderRadius = '8px';
        this.appendChild(frame);
      }
    });
  }
})();
`, strings.TrimRight(baseURL, "/"), DefaultWidth, DefaultCompactHeight, DefaultFullHeight)
	return []byte(js)
}
