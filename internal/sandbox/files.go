package sandbox

// The template must compile candidates against the exact dependency
// versions and import surface the production player uses. A drift between
// the two produces false passes or false failures, so the three files below
// are written identically on every provisioning.

const candidateFile = "src/Composition.tsx"

const packageJSON = `{
  "name": "reelsmith-sandbox",
  "private": true,
  "dependencies": {
    "react": "18.3.1",
    "react-dom": "18.3.1",
    "remotion": "4.0.245"
  },
  "devDependencies": {
    "@types/react": "18.3.12",
    "typescript": "5.6.3"
  }
}
`

const tsConfig = `{
  "compilerOptions": {
    "target": "ES2020",
    "lib": ["DOM", "ES2020"],
    "module": "ESNext",
    "moduleResolution": "node",
    "jsx": "react-jsx",
    "strict": true,
    "noEmit": true,
    "skipLibCheck": true,
    "esModuleInterop": true,
    "isolatedModules": true
  },
  "include": ["src"]
}
`

// importHeader mirrors the symbol set the production player injects around
// generated code.
const importHeader = `import React from 'react';
import {
  AbsoluteFill,
  Audio,
  Easing,
  Img,
  Sequence,
  Video,
  interpolate,
  spring,
  useCurrentFrame,
  useVideoConfig,
} from 'remotion';
`

const placeholderBody = `export const MyComposition: React.FC = () => {
  const frame = useCurrentFrame();
  const {fps} = useVideoConfig();
  const opacity = interpolate(frame, [0, fps], [0, 1], {
    easing: Easing.ease,
    extrapolateRight: 'clamp',
  });
  return <AbsoluteFill style={{backgroundColor: 'black', opacity}} />;
};
`

// wrapCandidate places candidate code under the player's import header,
// matching the wrapping the production execution environment applies.
func wrapCandidate(code string) string {
	return importHeader + "\n" + code + "\n"
}
